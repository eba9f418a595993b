package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"commentary-rag/internal/embedding"
	"commentary-rag/internal/models"

	"github.com/ollama/ollama/api"
)

// OllamaLLM handles interactions with the Ollama LLM API
type OllamaLLM struct {
	Client *api.Client
	Model  string
}

// NewOllamaLLM creates a new Ollama LLM client
func NewOllamaLLM(host string, model string) (*OllamaLLM, error) {
	hostURL, err := embedding.ResolveHost(host)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaLLM{
		Client: client,
		Model:  model,
	}, nil
}

// GeneratePrompt creates a prompt for the LLM with the commentary passages
// that cite the passage being asked about
func (o *OllamaLLM) GeneratePrompt(query string, passage string, hits []models.ReferenceHit) string {
	var promptBuilder strings.Builder

	// System instruction
	promptBuilder.WriteString("You are a careful assistant answering questions from Matthew Henry's Commentary on the Whole Bible. ")
	promptBuilder.WriteString("Answer using only the commentary excerpts provided. ")
	promptBuilder.WriteString("When you draw on an excerpt, name the commentary chapter it comes from. ")
	promptBuilder.WriteString("If the excerpts do not answer the question, say 'The commentary excerpts provided do not address that question.'\n\n")

	if passage != "" {
		promptBuilder.WriteString("Passage under discussion: " + passage + "\n\n")
	}

	// Add each excerpt with where it was found
	promptBuilder.WriteString("Commentary excerpts:\n")
	for i, hit := range hits {
		fmt.Fprintf(&promptBuilder, "Excerpt %d [%s, citing %s]:\n", i+1, hit.DocumentTitle, hit.Ref.Display)
		promptBuilder.WriteString(hit.Context)
		promptBuilder.WriteString("\n\n")
	}

	// Add query
	promptBuilder.WriteString("Question: " + query + "\n\n")
	promptBuilder.WriteString("Answer: ")

	return promptBuilder.String()
}

// GenerateResponse generates a response from the LLM
func (o *OllamaLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]any{
			"temperature": 0.1,
			"num_predict": 1024,
		},
	}

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

// Answer answers a query about passage from the commentary hits
func (o *OllamaLLM) Answer(ctx context.Context, query string, passage string, hits []models.ReferenceHit) (*models.Response, error) {
	prompt := o.GeneratePrompt(query, passage, hits)

	answer, err := o.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &models.Response{
		Answer:    strings.TrimSpace(answer),
		Sources:   hits,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}
