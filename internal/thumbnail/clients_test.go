package thumbnail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Describe(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"setting\":\"studio\"}"}}]
		}`))
	}))
	defer server.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	answer, err := c.Describe(context.Background(), []byte("img"), "image/jpeg", "describe")
	require.NoError(t, err)

	assert.Equal(t, `{"setting":"studio"}`, answer)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])

	body, _ := json.Marshal(got["messages"])
	assert.Contains(t, string(body), "data:image/jpeg;base64,aW1n")
	assert.Contains(t, string(body), "describe")
}

func TestOpenAIClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	_, err := c.Describe(context.Background(), []byte("img"), "image/jpeg", "describe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOllamaClient_Describe(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llava","response":"  {\"setting\":\"gym\"}\n","done":true}`))
	}))
	defer server.Close()

	c := NewOllamaClient(OllamaConfig{BaseURL: server.URL + "/", APIKey: "secret"})
	answer, err := c.Describe(context.Background(), []byte("img"), "image/png", "describe")
	require.NoError(t, err)

	assert.Equal(t, `{"setting":"gym"}`, answer)
	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Equal(t, []string{"aW1n"}, got.Images)
	assert.Equal(t, "ollama", c.Name())
}

func TestOllamaClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	_, err := c.Describe(context.Background(), []byte("img"), "image/png", "describe")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 500"))
}

func TestNormalize(t *testing.T) {
	hooks := make([]string, 0, 14)
	hooks = append(hooks, HookElements...)
	hooks = append(hooks, "unknown", "glitter")

	got := normalize(rawAnalysis{
		VisualStyle:  "before-after",
		Setting:      " Outdoor ",
		CameraAngle:  "",
		ColorScheme:  "neon",
		PeopleCount:  42,
		HookElements: hooks,
		Confidence:   -0.5,
	})

	assert.Equal(t, "before_after", got.VisualStyle)
	assert.Equal(t, "outdoor", got.Setting)
	assert.Equal(t, Unknown, got.CameraAngle)
	assert.Equal(t, Unknown, got.ColorScheme)
	assert.Equal(t, 20, got.PeopleCount)
	assert.Len(t, got.HookElements, 10)
	assert.Equal(t, 0.0, got.ConfidenceScore)

	assert.Equal(t, 0, clampPeople(-3))
	assert.Equal(t, 3, clampPeople(2.6))
}
