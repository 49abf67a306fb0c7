package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-reading-be/pkg/llm"
)

func TestOllamaProvider_Chat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{Message: message{Role: "assistant", Content: `{"doc_type":"STEM"}`}, Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
		{Role: "model", Content: "hi"},
		{Role: llm.RoleUser, Content: "look", Attachments: []llm.Attachment{{MIMEType: "image/png", Data: []byte{1, 2}}}},
	}, llm.WithSystem("be brief"), llm.WithJSON(), llm.WithModel("qwen"))

	require.NoError(t, err)
	assert.Equal(t, `{"doc_type":"STEM"}`, out)
	assert.Equal(t, "qwen", got.Model)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, llm.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, got.Messages[2].Role)
	assert.Equal(t, []string{"AQI="}, got.Messages[3].Images)
}

func TestOllamaProvider_RejectsPDF(t *testing.T) {
	p := NewOllamaProvider("http://127.0.0.1:0", "llama3")
	_, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Attachments: []llm.Attachment{{MIMEType: "application/pdf", Data: []byte("%PDF")}}},
	})
	assert.ErrorIs(t, err, llm.ErrUnsupportedAttachment)
}

func TestOllamaProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
