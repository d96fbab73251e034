package studyai

import (
	"context"
	"errors"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GenAIProvider calls the Gemini API through the genai SDK. Clients are
// created lazily, one per key, and reused.
type GenAIProvider struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGenAIProvider() *GenAIProvider {
	return &GenAIProvider{clients: make(map[string]*genai.Client)}
}

func (p *GenAIProvider) client(ctx context.Context, key string) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	return c, nil
}

// Generate implements KeyedProvider.
func (p *GenAIProvider) Generate(ctx context.Context, apiKey string, req Request) (string, error) {
	if apiKey == "" {
		return "", ErrNoCredentials
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	c, err := p.client(ctx, apiKey)
	if err != nil {
		return "", &ProviderError{Message: "create client", Err: err}
	}

	resp, err := c.Models.GenerateContent(ctx, model, req.Contents, req.Config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
		}
		return "", &ProviderError{Message: err.Error(), Err: err}
	}

	return responseText(resp), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
