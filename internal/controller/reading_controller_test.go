package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-reading-be/internal/dto"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/internal/pkg/serverutils"
	"ai-reading-be/internal/repository/memory"
	"ai-reading-be/internal/service"
	"ai-reading-be/pkg/persistence"
	"ai-reading-be/pkg/reading"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type scriptedGateway struct{}

func (scriptedGateway) Diagnose(ctx context.Context, content reading.Content) (*reading.StudyMap, error) {
	return &reading.StudyMap{
		Topic:           "Thermodynamics",
		Prerequisites:   []reading.Prerequisite{{ID: "p1", Concept: "Entropy"}},
		InitialBriefing: "Energy is conserved.",
	}, nil
}

func (scriptedGateway) Classify(ctx context.Context, content reading.Content) (reading.DocType, error) {
	return reading.DocTypeSTEM, nil
}

func (scriptedGateway) GatekeeperQuiz(ctx context.Context, content reading.Content, topic string) (*reading.QuizData, error) {
	return &reading.QuizData{
		Question:     "Which quantity never decreases in an isolated system?",
		Options:      []string{"Temperature", "Entropy"},
		CorrectIndex: 1,
		Explanation:  "The second law.",
	}, nil
}

func (scriptedGateway) TutorTurn(ctx context.Context, req reading.TutorRequest) (string, error) {
	return "reply to: " + req.Text, nil
}

type textSources struct{}

func (textSources) ContentSource(uuid.UUID) reading.ContentSource { return textSource{} }

type textSource struct{}

func (textSource) GetContent(ctx context.Context, documentID string) (reading.Content, error) {
	return reading.Content{Text: "The first law of thermodynamics."}, nil
}

type nopStore struct{}

func (nopStore) Save(context.Context, persistence.Envelope) error { return nil }
func (nopStore) Load(context.Context, string, string) (*reading.Snapshot, error) {
	return nil, nil
}
func (nopStore) Delete(context.Context, string, string) error { return nil }

func newReadingApp(t *testing.T) *fiber.App {
	t.Helper()
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	debouncer := persistence.NewDebouncer(bus, persistence.DefaultTopic, time.Hour, nil)
	t.Cleanup(func() {
		debouncer.Close()
		_ = bus.Close()
	})

	svc := service.NewReadingService(
		memory.NewSessionRepository(time.Hour),
		scriptedGateway{},
		textSources{},
		nopStore{},
		debouncer,
		nil,
		logger.NewNopLogger(),
		service.ReadingOptions{},
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(nil))
	NewReadingController(svc, testSecret).RegisterRoutes(app.Group("/api"))
	return app
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
	base  string
}

func newClient(t *testing.T) *client {
	token, err := serverutils.SignToken(testSecret, uuid.NewString(), time.Hour)
	require.NoError(t, err)
	return &client{
		t:     t,
		app:   newReadingApp(t),
		token: token,
		base:  "/api/reading/v1/" + uuid.NewString(),
	}
}

func (c *client) do(method, path string, body interface{}) (int, serverutils.Response[*dto.ReadingSessionResponse]) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, c.base+path, reader)
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out serverutils.Response[*dto.ReadingSessionResponse]
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.NoError(c.t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestReadingController_Flow(t *testing.T) {
	c := newClient(t)

	code, res := c.do(http.MethodGet, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, res.Success)

	code, res = c.do(http.MethodPost, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "diagnosis", res.Data.Stage)
	assert.Equal(t, "Thermodynamics", res.Data.StudyMap.Topic)

	code, res = c.do(http.MethodPost, "/prerequisites/p1/toggle", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Data.WorkingPrerequisites[0].Mastered)

	code, res = c.do(http.MethodPost, "/quiz", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "quiz", res.Data.Stage)
	assert.Nil(t, res.Data.Quiz.CorrectIndex)

	code, _ = c.do(http.MethodPut, "/quiz/selection", map[string]int{"index": 0})
	require.Equal(t, http.StatusOK, code)

	code, res = c.do(http.MethodPost, "/quiz/submit", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, res.Data.IsCorrect)
	assert.False(t, *res.Data.IsCorrect)
	assert.Equal(t, 1, *res.Data.Quiz.CorrectIndex)

	code, res = c.do(http.MethodPost, "/reading", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reading", res.Data.Stage)

	code, res = c.do(http.MethodPut, "/doc-type", map[string]string{"doc_type": "HUMANITIES"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "HUMANITIES", res.Data.DocType)

	code, res = c.do(http.MethodPost, "/chat", map[string]string{"text": "What next?"})
	require.Equal(t, http.StatusOK, code)
	last := res.Data.Transcript[len(res.Data.Transcript)-1]
	assert.Equal(t, "reply to: What next?", last.Text)

	code, _ = c.do(http.MethodDelete, "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReadingController_Validation(t *testing.T) {
	c := newClient(t)
	code, _ := c.do(http.MethodPost, "", nil)
	require.Equal(t, http.StatusOK, code)
	_, _ = c.do(http.MethodPost, "/skip", nil)

	code, _ = c.do(http.MethodPut, "/doc-type", map[string]string{"doc_type": "POETRY"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/chat", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/chat", map[string]string{"text": "hi", "mode": "gossip"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPut, "/quiz/selection", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReadingController_RequiresToken(t *testing.T) {
	app := newReadingApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/reading/v1/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReadingController_BadDocumentId(t *testing.T) {
	c := newClient(t)
	c.base = "/api/reading/v1/not-a-uuid"
	code, res := c.do(http.MethodPost, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
}
