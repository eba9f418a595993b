package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"commentary-rag/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleHits = []models.ReferenceHit{
	{
		DocumentID:    "MHC43010.HTM",
		DocumentTitle: "John 10",
		SourceBook:    "John",
		SourceChapter: 10,
		Ref:           models.ParsedPassage{Book: "Psalms", Chapter: 23, Verses: "1", Display: "Psalms 23:1"},
		Context:       "…the good shepherd, as David sang…",
	},
}

func TestGeneratePrompt(t *testing.T) {
	o := &OllamaLLM{Model: "phi3-mini"}

	prompt := o.GeneratePrompt("Who is the shepherd?", "Psalms 23", sampleHits)

	assert.Contains(t, prompt, "Passage under discussion: Psalms 23")
	assert.Contains(t, prompt, "Excerpt 1 [John 10, citing Psalms 23:1]:\n…the good shepherd, as David sang…")
	assert.Contains(t, prompt, "Question: Who is the shepherd?")
	assert.Regexp(t, `Answer: $`, prompt)
}

func TestGeneratePromptWithoutPassage(t *testing.T) {
	prompt := (&OllamaLLM{}).GeneratePrompt("What is grace?", "", nil)
	assert.NotContains(t, prompt, "Passage under discussion")
}

func TestAnswer(t *testing.T) {
	var got api.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		_ = enc.Encode(api.GenerateResponse{Model: got.Model, Response: " The Lord "})
		_ = enc.Encode(api.GenerateResponse{Model: got.Model, Response: "Himself. ", Done: true})
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	o := &OllamaLLM{Client: api.NewClient(u, srv.Client()), Model: "phi3-mini"}

	resp, err := o.Answer(context.Background(), "Who is the shepherd?", "Psalms 23", sampleHits)
	require.NoError(t, err)

	assert.Equal(t, "The Lord Himself.", resp.Answer)
	assert.Equal(t, sampleHits, resp.Sources)
	assert.NotEmpty(t, resp.Timestamp)
	assert.Equal(t, "phi3-mini", got.Model)
	assert.Contains(t, got.Prompt, "Psalms 23:1")
}

func TestAnswerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	o := &OllamaLLM{Client: api.NewClient(u, srv.Client()), Model: "missing"}

	_, err = o.Answer(context.Background(), "q", "", nil)
	assert.ErrorContains(t, err, "failed to generate response")
}
