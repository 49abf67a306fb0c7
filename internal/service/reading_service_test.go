package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-reading-be/internal/dto"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/internal/repository/memory"
	"ai-reading-be/pkg/events"
	"ai-reading-be/pkg/persistence"
	"ai-reading-be/pkg/reading"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) Diagnose(ctx context.Context, content reading.Content) (*reading.StudyMap, error) {
	return &reading.StudyMap{
		Topic:           "Thermodynamics",
		Prerequisites:   []reading.Prerequisite{{ID: "p1", Concept: "Entropy"}},
		InitialBriefing: "Energy is conserved.",
	}, nil
}

func (stubGateway) Classify(ctx context.Context, content reading.Content) (reading.DocType, error) {
	return reading.DocTypeSTEM, nil
}

func (stubGateway) GatekeeperQuiz(ctx context.Context, content reading.Content, topic string) (*reading.QuizData, error) {
	return &reading.QuizData{
		Question:     "Which quantity never decreases in an isolated system?",
		Options:      []string{"Temperature", "Entropy"},
		CorrectIndex: 1,
		Explanation:  "The second law.",
	}, nil
}

func (stubGateway) TutorTurn(ctx context.Context, req reading.TutorRequest) (string, error) {
	return "reply to: " + req.Text, nil
}

type stubSource struct{ err error }

func (s stubSource) GetContent(ctx context.Context, documentID string) (reading.Content, error) {
	if s.err != nil {
		return reading.Content{}, s.err
	}
	return reading.Content{Text: "The first law of thermodynamics."}, nil
}

type stubSources struct{ err error }

func (s stubSources) ContentSource(uuid.UUID) reading.ContentSource { return stubSource{err: s.err} }

type memStore struct {
	mu    sync.Mutex
	saved map[string]persistence.Envelope
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]persistence.Envelope)}
}

func (m *memStore) Save(ctx context.Context, env persistence.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[env.Key()] = env
	return nil
}

func (m *memStore) Load(ctx context.Context, userID, documentID string) (*reading.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.saved[persistence.Key(userID, documentID)]
	if !ok {
		return nil, nil
	}
	snap := env.Snapshot
	return &snap, nil
}

func (m *memStore) Delete(ctx context.Context, userID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, persistence.Key(userID, documentID))
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type readingFixture struct {
	svc       IReadingService
	store     *memStore
	publisher *recordingPublisher
	snapshots <-chan *message.Message
	userId    uuid.UUID
	docId     uuid.UUID
}

func newReadingFixture(t *testing.T, sources ContentSourceProvider) *readingFixture {
	t.Helper()
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := bus.Subscribe(ctx, persistence.DefaultTopic)
	require.NoError(t, err)

	debouncer := persistence.NewDebouncer(bus, persistence.DefaultTopic, time.Hour, nil)
	t.Cleanup(func() {
		debouncer.Close()
		cancel()
		_ = bus.Close()
	})

	store := newMemStore()
	publisher := &recordingPublisher{}
	svc := NewReadingService(
		memory.NewSessionRepository(time.Hour),
		stubGateway{},
		sources,
		store,
		debouncer,
		publisher,
		logger.NewNopLogger(),
		ReadingOptions{DiagnosisTimeout: time.Second},
	)
	return &readingFixture{
		svc:       svc,
		store:     store,
		publisher: publisher,
		snapshots: msgs,
		userId:    uuid.New(),
		docId:     uuid.New(),
	}
}

func TestReadingService_OpenDiagnoses(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()

	res, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, "diagnosis", res.Stage)
	assert.Equal(t, "STEM", res.DocType)
	require.NotNil(t, res.StudyMap)
	assert.Equal(t, "Thermodynamics", res.StudyMap.Topic)
	assert.Len(t, res.WorkingPrerequisites, 1)

	again, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, res.StudyMap, again.StudyMap)
}

func TestReadingService_RequiresOpenSession(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()

	_, err := f.svc.Show(ctx, f.userId, f.docId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.EnterQuiz(ctx, f.userId, f.docId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Close(ctx, f.userId, f.docId), ErrSessionNotFound)
}

func TestReadingService_OpenMissingDocument(t *testing.T) {
	f := newReadingFixture(t, stubSources{err: ErrDocumentNotFound})

	_, err := f.svc.Open(context.Background(), f.userId, f.docId)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = f.svc.Show(context.Background(), f.userId, f.docId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReadingService_QuizFlow(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)

	res, err := f.svc.ToggleMastered(ctx, f.userId, f.docId, "p1")
	require.NoError(t, err)
	assert.True(t, res.WorkingPrerequisites[0].Mastered)

	res, err = f.svc.BeginAdaptiveLearning(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, "quiz", res.Stage)
	require.NotNil(t, res.Quiz)
	assert.Nil(t, res.Quiz.CorrectIndex)
	assert.Empty(t, res.Quiz.Explanation)
	assert.Nil(t, res.IsCorrect)

	one := 1
	res, err = f.svc.SelectQuizOption(ctx, f.userId, f.docId, &dto.SelectQuizOptionRequest{Index: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, *res.QuizSelection)

	res, err = f.svc.SubmitQuiz(ctx, f.userId, f.docId)
	require.NoError(t, err)
	require.NotNil(t, res.IsCorrect)
	assert.True(t, *res.IsCorrect)
	assert.Equal(t, 1, *res.Quiz.CorrectIndex)
	assert.Equal(t, "The second law.", res.Quiz.Explanation)

	_, err = f.svc.SubmitQuiz(ctx, f.userId, f.docId)
	require.NoError(t, err)

	graded := f.publisher.ofType(events.TypeReadingQuizGraded)
	require.Len(t, graded, 1)
	assert.Equal(t, true, graded[0].Payload()["correct"])

	res, err = f.svc.EnterReading(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, "reading", res.Stage)
	require.NotEmpty(t, res.Transcript)
	last := res.Transcript[len(res.Transcript)-1]
	assert.Equal(t, "model", last.Role)
	assert.Equal(t, "reading", last.Mode)

	changes := f.publisher.ofType(events.TypeReadingStageChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, "quiz", changes[0].Payload()["to"])
	assert.Equal(t, "reading", changes[1].Payload()["to"])
}

func TestReadingService_SendAndDocType(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)
	_, err = f.svc.SkipToReading(ctx, f.userId, f.docId)
	require.NoError(t, err)

	res, err := f.svc.SetDocType(ctx, f.userId, f.docId, &dto.SetDocTypeRequest{DocType: "HUMANITIES"})
	require.NoError(t, err)
	assert.Equal(t, "HUMANITIES", res.DocType)

	res, err = f.svc.Send(ctx, f.userId, f.docId, &dto.SendMessageRequest{Text: "Why?"})
	require.NoError(t, err)
	last := res.Transcript[len(res.Transcript)-1]
	assert.Equal(t, "reply to: Why?", last.Text)

	_, err = f.svc.Send(ctx, f.userId, f.docId, &dto.SendMessageRequest{Text: "   "})
	assert.ErrorIs(t, err, reading.ErrEmptyMessage)
}

func TestReadingService_CloseFlushesSnapshot(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, f.userId, f.docId))

	select {
	case msg := <-f.snapshots:
		msg.Ack()
		env, err := persistence.Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, f.docId.String(), env.DocumentID)
		assert.Equal(t, f.userId.String(), env.UserID)
		assert.Equal(t, reading.StageDiagnosis, env.Snapshot.Stage)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot was not flushed on close")
	}

	_, err = f.svc.Show(ctx, f.userId, f.docId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReadingService_RestoresFromStore(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, persistence.Envelope{
		DocumentID: f.docId.String(),
		UserID:     f.userId.String(),
		Snapshot: reading.Snapshot{
			Stage:   reading.StageReading,
			DocType: reading.DocTypeHumanities,
			Transcript: []reading.ChatMessage{
				{Role: reading.RoleModel, Text: "Welcome back.", Mode: reading.ModeReading},
			},
		},
	}))

	res, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, "reading", res.Stage)
	assert.Equal(t, "HUMANITIES", res.DocType)
	require.Len(t, res.Transcript, 1)
	assert.Equal(t, "Welcome back.", res.Transcript[0].Text)
}

func TestReadingService_Discard(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)

	f.svc.Discard(f.userId, f.docId)

	select {
	case msg := <-f.snapshots:
		msg.Ack()
		t.Fatal("discarded session must not be persisted")
	case <-time.After(100 * time.Millisecond):
	}
	_, err = f.svc.Show(ctx, f.userId, f.docId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReadingService_EventFailuresAreSwallowed(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	svc := f.svc.(*readingService)
	svc.publisher = failingPublisher{}
	ctx := context.Background()

	_, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)
	res, err := f.svc.SkipToReading(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, "reading", res.Stage)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("nats: no responders")
}

func TestReadingService_SubmitAfterSkipIsIgnored(t *testing.T) {
	f := newReadingFixture(t, stubSources{})
	ctx := context.Background()
	_, err := f.svc.Open(ctx, f.userId, f.docId)
	require.NoError(t, err)
	_, err = f.svc.ToggleMastered(ctx, f.userId, f.docId, "p1")
	require.NoError(t, err)
	res, err := f.svc.BeginAdaptiveLearning(ctx, f.userId, f.docId)
	require.NoError(t, err)
	require.Equal(t, "quiz", res.Stage)

	zero := 0
	_, err = f.svc.SelectQuizOption(ctx, f.userId, f.docId, &dto.SelectQuizOptionRequest{Index: &zero})
	require.NoError(t, err)
	_, err = f.svc.SkipToReading(ctx, f.userId, f.docId)
	require.NoError(t, err)

	res, err = f.svc.SubmitQuiz(ctx, f.userId, f.docId)
	require.NoError(t, err)
	assert.Equal(t, "reading", res.Stage)
	assert.Nil(t, res.IsCorrect)
	assert.Empty(t, f.publisher.ofType(events.TypeReadingQuizGraded))
}
