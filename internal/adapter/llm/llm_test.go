package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:latest", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		assert.False(t, req.Stream)
		w.Write([]byte(`{"response":"  O regulamento permite.  \n","done":true}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "llama3.1:latest", time.Second)
	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "O regulamento permite.", text)
	assert.Equal(t, "llama3.1:latest", c.ModelName())
}

func TestOllamaClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"malformed json", http.StatusOK, `not json`},
		{"missing response field", http.StatusOK, `{"done":true}`},
		{"api error field", http.StatusOK, `{"error":"model not loaded"}`},
		{"blank response", http.StatusOK, `{"response":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewOllamaClient(server.URL, "m", time.Second).Generate(context.Background(), "p")
			assert.Error(t, err)
		})
	}
}

func TestOllamaClient_BlankIsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":""}`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(server.URL, "m", time.Second).Generate(context.Background(), "p")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestOllamaClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"response":"late"}`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(server.URL, "m", 20*time.Millisecond).Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestChatClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"0.8"}}]}`))
	}))
	defer server.Close()

	t.Setenv("REGBOT_TEST_CHAT_KEY", "secret")
	c := NewChatClient(server.URL+"/v1/", "gpt-4o-mini", "REGBOT_TEST_CHAT_KEY", time.Second)
	text, err := c.Generate(context.Background(), "score this")
	require.NoError(t, err)
	assert.Equal(t, "0.8", text)
}

func TestChatClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewChatClient(server.URL, "m", "", time.Second).Generate(context.Background(), "p")
	assert.Error(t, err)
}
