package ai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/guesswho/internal/ai"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionServer answers every chat completion with content.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Category id: skills")

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SuggestQuestions(t *testing.T) {
	content := `{"questions": [
  {"id": "skills-rust", "prompt": "Does your person write Rust?", "attributePath": "skills", "attributeValue": "rust"},
  {"id": "skills-go", "prompt": "Does your person write Go?", "attributePath": "skills", "attributeValue": "go"},
  {"id": "skills-shoe-size", "prompt": "Is your person big-footed?", "attributePath": "shoeSize", "attributeValue": "46"},
  {"id": "skills-any", "prompt": "Does your person have skills?", "attributePath": "skills"}
]}`
	srv := completionServer(t, content)
	client := ai.NewClient("test-key", srv.URL+"/v1", "test-model", testhelpers.NewLogger(io.Discard))

	category := models.QuestionCategory{
		ID:       "skills",
		Name:     "Skills",
		Position: 0,
		Questions: []models.Question{{
			ID:             "skills-go",
			CategoryID:     "skills",
			Prompt:         "Does your person write Go?",
			AttributePath:  "skills",
			AttributeValue: nil,
			Position:       0,
		}},
	}
	questions, err := client.SuggestQuestions(context.Background(), category, 3)
	require.NoError(t, err)
	require.Len(t, questions, 1, "duplicates, unknown attributes and missing values are dropped")
	require.Equal(t, "skills-rust", questions[0].ID)
	require.Equal(t, "skills", questions[0].CategoryID)
	require.Equal(t, 1, questions[0].Position)
}

func TestClient_SuggestQuestions_garbage(t *testing.T) {
	srv := completionServer(t, "no JSON here")
	client := ai.NewClient("test-key", srv.URL+"/v1", "", testhelpers.NewLogger(io.Discard))

	category := models.QuestionCategory{ID: "skills", Name: "Skills", Position: 0, Questions: nil}
	_, err := client.SuggestQuestions(context.Background(), category, 3)
	require.ErrorIs(t, err, ai.ErrNoSuggestions)
	require.ErrorIs(t, err, errors.ErrUpstream)
}
