package llm

import (
	"context"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrUnsupportedAttachment is returned by providers that cannot read a given
// attachment type (for example a PDF sent to a text-only model).
var ErrUnsupportedAttachment = errors.New("attachment type not supported by provider")

// Attachment is inline binary content sent alongside a message.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role        string // "user", "assistant", "system"
	Content     string
	Attachments []Attachment
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	System      string
	JSON        bool
}

func NewOptions(defaults Options, opts ...Option) *Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return &o
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithSystem sets the system instruction for the call.
func WithSystem(instruction string) Option {
	return func(o *Options) {
		o.System = instruction
	}
}

// WithJSON asks the backend to constrain its output to a JSON document.
func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
