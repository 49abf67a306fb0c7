package inference

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-reading-be/pkg/llm"
	"ai-reading-be/pkg/reading"
)

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	history [][]llm.Message
	options []*llm.Options
}

func (p *fakeProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, history)
	p.options = append(p.options, llm.NewOptions(llm.Options{}, opts...))
	return p.reply, p.err
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func TestGateway_Diagnose(t *testing.T) {
	p := &fakeProvider{reply: "```json\n" + `{"topic":" Thermodynamics ","prerequisites":[{"id":"p1","concept":"Entropy"},{"id":"p2","concept":"Heat"}],"initial_briefing":"Energy moves."}` + "\n```"}
	g := NewGateway(p, nil)

	sm, err := g.Diagnose(context.Background(), reading.Content{Raw: []byte("%PDF"), MIMEType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Thermodynamics", sm.Topic)
	assert.Equal(t, []reading.Prerequisite{{ID: "p1", Concept: "Entropy"}, {ID: "p2", Concept: "Heat"}}, sm.Prerequisites)
	assert.Equal(t, "Energy moves.", sm.InitialBriefing)

	require.Len(t, p.history, 1)
	doc := p.history[0][0]
	require.Len(t, doc.Attachments, 1)
	assert.Equal(t, "application/pdf", doc.Attachments[0].MIMEType)
	assert.True(t, p.options[0].JSON)
	assert.NotEmpty(t, p.options[0].System)
}

func TestGateway_DiagnoseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "I cannot read this document."},
		{name: "missing topic", reply: `{"prerequisites":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(&fakeProvider{reply: tt.reply}, nil)
			_, err := g.Diagnose(context.Background(), reading.Content{Text: "body"})
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestGateway_Classify(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    reading.DocType
		wantErr bool
	}{
		{name: "stem", reply: `{"doc_type":"STEM"}`, want: reading.DocTypeSTEM},
		{name: "lowercase", reply: `Sure! {"doc_type": "humanities"}`, want: reading.DocTypeHumanities},
		{name: "unknown", reply: `{"doc_type":"POETRY"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(&fakeProvider{reply: tt.reply}, nil)
			got, err := g.Classify(context.Background(), reading.Content{Text: "body"})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGateway_GatekeeperQuiz(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := &fakeProvider{reply: `{"question":"Q?","options":["a","b","c","d"],"correct_index":2,"explanation":"because"}`}
		g := NewGateway(p, nil)
		quiz, err := g.GatekeeperQuiz(context.Background(), reading.Content{Text: "body"}, "Optics")
		require.NoError(t, err)
		assert.Equal(t, 2, quiz.CorrectIndex)
		assert.Contains(t, p.options[0].System, `"Optics"`)
	})

	t.Run("index out of range", func(t *testing.T) {
		p := &fakeProvider{reply: `{"question":"Q?","options":["a","b"],"correct_index":4}`}
		_, err := NewGateway(p, nil).GatekeeperQuiz(context.Background(), reading.Content{Text: "body"}, "Optics")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestGateway_TutorTurn(t *testing.T) {
	p := &fakeProvider{reply: "  Entropy measures disorder.  "}
	g := NewGateway(p, nil, WithModel("gemini-2.5-pro"))

	reply, err := g.TutorTurn(context.Background(), reading.TutorRequest{
		Content: reading.Content{Text: "body"},
		Transcript: []reading.ChatMessage{
			{Role: reading.RoleUser, Text: "hi", Mode: reading.ModeTutoring},
			{Role: reading.RoleModel, Text: "hello", Mode: reading.ModeTutoring},
		},
		Text:     "what is entropy?",
		Mode:     reading.ModeTutoring,
		Concepts: []string{"Entropy"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Entropy measures disorder.", reply)

	history := p.history[0]
	require.Len(t, history, 4)
	assert.Contains(t, history[0].Content, "DOCUMENT:\nbody")
	assert.Equal(t, llm.RoleAssistant, history[2].Role)
	assert.Equal(t, "what is entropy?", history[3].Content)
	assert.Contains(t, p.options[0].System, "Concepts to teach: Entropy.")
	assert.Equal(t, "gemini-2.5-pro", p.options[0].Model)
	assert.False(t, p.options[0].JSON)
}

func TestGateway_ReadingInstructionFollowsDocType(t *testing.T) {
	stem := tutorInstruction(reading.TutorRequest{Mode: reading.ModeReading, DocType: reading.DocTypeSTEM})
	hum := tutorInstruction(reading.TutorRequest{Mode: reading.ModeReading, DocType: reading.DocTypeHumanities})
	assert.Contains(t, stem, "logic map")
	assert.Contains(t, hum, "deep skim report")
}

func TestGateway_ProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewGateway(&fakeProvider{err: boom}, nil).TutorTurn(context.Background(), reading.TutorRequest{Text: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestFindFirstJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "prose around", in: `Here: {"a":{"b":2}} done`, want: `{"a":{"b":2}}`},
		{name: "brace in string", in: `x {"a":"}"} y`, want: `{"a":"}"}`},
		{name: "none", in: `no json here`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findFirstJSON(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short input untouched", in: "entropy", max: 50, want: "entropy"},
		{name: "ascii cut", in: "abcdef", max: 3, want: "abc"},
		{name: "two byte rune at the cut", in: "abécd", max: 3, want: "ab"},
		{name: "rune split at the last byte", in: "hé", max: 2, want: "h"},
		{name: "three byte runes", in: "日本", max: 4, want: "日"},
		{name: "invalid byte keeps the budget", in: "caf\xe9 " + strings.Repeat("x", 100), max: 50, want: "caf\uFFFD " + strings.Repeat("x", 43)},
		{name: "invalid byte in short input", in: "a\xffb", max: 10, want: "a\uFFFDb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), tt.max)
		})
	}
}
