package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ai-reading-be/internal/config"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/document"
	"ai-reading-be/pkg/inference"
	"ai-reading-be/pkg/llm/factory"
	"ai-reading-be/pkg/reading"
)

type sessionFlags struct {
	provider string
	model    string
	timeout  time.Duration
	verbose  bool
}

// newSession wires a controller for a single local file. Nothing is
// persisted.
func newSession(ctx context.Context, flags *sessionFlags, path string) (*reading.Controller, error) {
	cfg := config.Load()
	if flags.provider != "" {
		cfg.Ai.Provider = flags.provider
	}
	if flags.model != "" {
		cfg.Ai.Model = flags.model
	}
	timeout := cfg.Reading.DiagnosisTimeout
	if flags.timeout > 0 {
		timeout = flags.timeout
	}

	log := logger.NewConsoleLogger(flags.verbose)
	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider: cfg.Ai.Provider,
		Model:    cfg.Ai.Model,
		BaseURL:  cfg.BaseURL(),
		APIKey:   cfg.APIKey(),
	})
	if err != nil {
		return nil, err
	}
	gateway := inference.NewGateway(provider, log, inference.WithModel(cfg.Ai.Model))
	source := document.NewFileSource(document.PathLocator{Path: path}, log)

	return reading.NewController(gateway, source,
		reading.WithLogger(log),
		reading.WithDiagnosisTimeout(timeout),
	), nil
}

func printStudyMap(w io.Writer, st reading.SessionState) {
	if st.StudyMap == nil {
		fmt.Fprintln(w, "Diagnosis unavailable.")
		return
	}
	fmt.Fprintf(w, "Topic: %s\n", st.StudyMap.Topic)
	if st.DocType != "" {
		fmt.Fprintf(w, "Type: %s\n", st.DocType)
	}
	fmt.Fprintln(w, "Prerequisites:")
	for _, p := range st.WorkingPrerequisites {
		mark := " "
		if p.Mastered {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s  %s\n", mark, p.ID, p.Concept)
	}
	if st.StudyMap.InitialBriefing != "" {
		fmt.Fprintf(w, "\n%s\n", st.StudyMap.InitialBriefing)
	}
}

func printQuiz(w io.Writer, quiz *reading.QuizData) {
	if quiz == nil {
		fmt.Fprintln(w, "Quiz unavailable.")
		return
	}
	fmt.Fprintf(w, "\nQ: %s\n", quiz.Question)
	for i, opt := range quiz.Options {
		fmt.Fprintf(w, "  %d) %s\n", i, opt)
	}
}

func printTranscript(w io.Writer, messages []reading.ChatMessage) {
	for _, m := range messages {
		fmt.Fprintf(w, "\n--- %s (%s) ---\n%s\n", strings.ToUpper(string(m.Role)), m.Mode, m.Text)
	}
}
