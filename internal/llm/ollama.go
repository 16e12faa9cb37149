// ABOUTME: Ollama client for local embeddings, classification and redline drafting
// ABOUTME: Implements the same collaborator methods as the OpenAI client
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaClient talks to a local or remote Ollama server
type OllamaClient struct {
	client         *api.Client
	chatModel      string
	embeddingModel string
	timeout        time.Duration
}

// NewOllamaClient creates a client for host; an empty host uses OLLAMA_HOST or the default
func NewOllamaClient(host, chatModel, embeddingModel string, timeout time.Duration, httpClient *http.Client) (*OllamaClient, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		client:         api.NewClient(hostURL, httpClient),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		timeout:        timeout,
	}, nil
}

// Embed generates an embedding vector for text
func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  o.embeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("failed to create embedding: %w", ErrEmptyResponse)
	}
	return resp.Embedding, nil
}

// Classify asks the local model for a category in JSON format
func (o *OllamaClient) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	var b strings.Builder
	b.WriteString(classifySystemPrompt)
	b.WriteString("\n\nAllowed categories: ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString("\n\nClause:\n")
	b.WriteString(text)

	content, err := o.generate(ctx, b.String(), true)
	if err != nil {
		return "", 0, err
	}
	return parseClassification(content)
}

// Draft produces a redline suggestion from a fully built prompt
func (o *OllamaClient) Draft(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, draftSystemPrompt+"\n\n"+prompt, false)
}

func (o *OllamaClient) generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	req := api.GenerateRequest{
		Model:  o.chatModel,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 1024,
		},
	}
	if jsonMode {
		req.Format = json.RawMessage(`"json"`)
	}

	var responseBuilder strings.Builder
	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if strings.TrimSpace(responseBuilder.String()) == "" {
		return "", fmt.Errorf("failed to generate response: %w", ErrEmptyResponse)
	}
	return responseBuilder.String(), nil
}
