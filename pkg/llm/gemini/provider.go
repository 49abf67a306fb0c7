package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"ai-reading-be/pkg/llm"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiProvider talks to the Gemini API. PDFs and images travel as inline
// blobs, so it can read documents that have no extractable text.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("missing gemini api key")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.NewOptions(llm.Options{Model: g.model, Temperature: 0.7}, opts...)

	contents, system := toContents(history)
	if options.System != "" {
		system = append([]string{options.System}, system...)
	}

	res, err := g.client.Models.GenerateContent(ctx, options.Model, contents, buildConfig(options, system))
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	return res.Text(), nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func buildConfig(options *llm.Options, system []string) *genai.GenerateContentConfig {
	temp := float32(options.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if len(system) > 0 {
		parts := make([]*genai.Part, 0, len(system))
		for _, s := range system {
			parts = append(parts, &genai.Part{Text: s})
		}
		cfg.SystemInstruction = &genai.Content{Parts: parts}
	}
	return cfg
}

// toContents converts the history. System messages are lifted out because
// Gemini takes them as a separate instruction.
func toContents(history []llm.Message) ([]*genai.Content, []string) {
	var system []string
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := string(genai.RoleUser)
		if m.Role == llm.RoleAssistant || m.Role == "model" {
			role = string(genai.RoleModel)
		}
		parts := make([]*genai.Part, 0, len(m.Attachments)+1)
		for _, a := range m.Attachments {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: a.MIMEType, Data: a.Data}})
		}
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents, system
}
