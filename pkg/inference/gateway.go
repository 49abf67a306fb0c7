package inference

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/llm"
	"ai-reading-be/pkg/reading"
)

const logModule = "INFERENCE"

// MaxDocumentChars caps the extracted text sent with each request.
const MaxDocumentChars = 120000

// Gateway implements reading.Gateway on top of any chat LLM provider.
type Gateway struct {
	provider llm.LLMProvider
	logger   logger.ILogger
	trace    logger.ILogger
	model    string
}

var _ reading.Gateway = (*Gateway)(nil)

type GatewayOption func(*Gateway)

// WithTraceLogger records every prompt and reply at debug level.
func WithTraceLogger(l logger.ILogger) GatewayOption {
	return func(g *Gateway) { g.trace = l }
}

func WithModel(model string) GatewayOption {
	return func(g *Gateway) { g.model = model }
}

func NewGateway(provider llm.LLMProvider, log logger.ILogger, opts ...GatewayOption) *Gateway {
	g := &Gateway{provider: provider, logger: log}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.NewNopLogger()
	}
	if g.trace == nil {
		g.trace = logger.NewNopLogger()
	}
	return g
}

type diagnosisPayload struct {
	Topic         string `json:"topic"`
	Prerequisites []struct {
		ID      string `json:"id"`
		Concept string `json:"concept"`
	} `json:"prerequisites"`
	InitialBriefing string `json:"initial_briefing"`
}

func (g *Gateway) Diagnose(ctx context.Context, content reading.Content) (*reading.StudyMap, error) {
	reply, err := g.call(ctx, reading.ClassDiagnosis, []llm.Message{documentMessage(content, "Diagnose this document.")},
		llm.WithSystem(diagnosisInstruction), llm.WithJSON(), llm.WithTemperature(0.2))
	if err != nil {
		return nil, err
	}

	var payload diagnosisPayload
	if err := decodeJSON(reply, &payload); err != nil {
		return nil, fmt.Errorf("diagnosis: %w", err)
	}
	if strings.TrimSpace(payload.Topic) == "" {
		return nil, fmt.Errorf("diagnosis: %w: missing topic", ErrMalformedResponse)
	}

	sm := &reading.StudyMap{
		Topic:           strings.TrimSpace(payload.Topic),
		InitialBriefing: strings.TrimSpace(payload.InitialBriefing),
		Prerequisites:   make([]reading.Prerequisite, 0, len(payload.Prerequisites)),
	}
	for _, p := range payload.Prerequisites {
		sm.Prerequisites = append(sm.Prerequisites, reading.Prerequisite{ID: p.ID, Concept: p.Concept})
	}
	return sm, nil
}

func (g *Gateway) Classify(ctx context.Context, content reading.Content) (reading.DocType, error) {
	reply, err := g.call(ctx, reading.ClassClassify, []llm.Message{documentMessage(content, "Classify this document.")},
		llm.WithSystem(classifyInstruction), llm.WithJSON(), llm.WithTemperature(0))
	if err != nil {
		return "", err
	}

	var payload struct {
		DocType string `json:"doc_type"`
	}
	if err := decodeJSON(reply, &payload); err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	docType := reading.DocType(strings.ToUpper(strings.TrimSpace(payload.DocType)))
	if !docType.Valid() {
		return "", fmt.Errorf("classify: %w: unknown doc type %q", ErrMalformedResponse, payload.DocType)
	}
	return docType, nil
}

func (g *Gateway) GatekeeperQuiz(ctx context.Context, content reading.Content, topic string) (*reading.QuizData, error) {
	reply, err := g.call(ctx, reading.ClassGatekeeperQuiz, []llm.Message{documentMessage(content, "Write the gatekeeper question.")},
		llm.WithSystem(quizPrompt(topic)), llm.WithJSON(), llm.WithTemperature(0.4))
	if err != nil {
		return nil, err
	}

	var quiz reading.QuizData
	if err := decodeJSON(reply, &quiz); err != nil {
		return nil, fmt.Errorf("gatekeeper quiz: %w", err)
	}
	if !quiz.Valid() {
		return nil, fmt.Errorf("gatekeeper quiz: %w: %d options, correct index %d", ErrMalformedResponse, len(quiz.Options), quiz.CorrectIndex)
	}
	return &quiz, nil
}

// TutorTurn sends the document, the transcript so far and the new turn. The
// document always leads the history so the model can ground every reply.
func (g *Gateway) TutorTurn(ctx context.Context, req reading.TutorRequest) (string, error) {
	history := make([]llm.Message, 0, len(req.Transcript)+2)
	history = append(history, documentMessage(req.Content, "This is the document we are studying."))
	for _, m := range req.Transcript {
		role := llm.RoleUser
		if m.Role == reading.RoleModel {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Text})
	}
	history = append(history, llm.Message{Role: llm.RoleUser, Content: req.Text})

	reply, err := g.call(ctx, reading.ClassTutorTurn, history, llm.WithSystem(tutorInstruction(req)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (g *Gateway) call(ctx context.Context, class reading.RequestClass, history []llm.Message, opts ...llm.Option) (string, error) {
	if g.model != "" {
		opts = append(opts, llm.WithModel(g.model))
	}

	start := time.Now()
	reply, err := g.provider.Chat(ctx, history, opts...)
	elapsed := time.Since(start)

	details := map[string]interface{}{
		"class":       string(class),
		"messages":    len(history),
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		details["error"] = err.Error()
		g.logger.Error(logModule, "Inference call failed", details)
		return "", fmt.Errorf("%s: %w", class, err)
	}
	g.logger.Info(logModule, "Inference call complete", details)
	g.trace.Debug(logModule, "Inference trace", map[string]interface{}{
		"class":  string(class),
		"prompt": history[len(history)-1].Content,
		"reply":  reply,
	})
	return reply, nil
}

// documentMessage frames the document for a request. Raw bytes travel as an
// inline attachment; text is truncated to MaxDocumentChars.
func documentMessage(content reading.Content, instruction string) llm.Message {
	if content.HasRaw() {
		mime := content.MIMEType
		if mime == "" {
			mime = "application/pdf"
		}
		return llm.Message{
			Role:        llm.RoleUser,
			Content:     instruction,
			Attachments: []llm.Attachment{{MIMEType: mime, Data: content.Raw}},
		}
	}
	return llm.Message{
		Role:    llm.RoleUser,
		Content: instruction + "\n\nDOCUMENT:\n" + truncate(content.Text, MaxDocumentChars),
	}
}

// truncate returns valid UTF-8 of at most max bytes, cut on a rune boundary.
// Invalid byte runs become U+FFFD before the cut.
func truncate(s string, max int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && cut > max-utf8.UTFMax && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
