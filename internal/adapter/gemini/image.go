package gemini

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"manualgen/internal/llm"
)

// ImageClient implements llm.ImageGenerator with a Gemini image model. The
// request asks for both text and image modalities; only the first inline image
// is kept.
type ImageClient struct {
	keys    KeySource
	model   string
	baseURL string

	mu         sync.RWMutex
	client     *genai.Client
	currentKey string
}

// NewImageClient uses the public endpoint when baseURL is empty.
func NewImageClient(keys KeySource, model, baseURL string) *ImageClient {
	return &ImageClient{keys: keys, model: model, baseURL: baseURL}
}

func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	key, err := resolveKey(ctx, c.keys)
	if err != nil {
		return nil, err
	}
	client, err := c.getClient(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return &llm.Image{Data: p.InlineData.Data, MediaType: p.InlineData.MIMEType}, nil
			}
		}
	}
	slog.DebugContext(ctx, "image model returned no image", "model", c.model)
	return nil, nil
}

func (c *ImageClient) getClient(ctx context.Context, key string) (*genai.Client, error) {
	c.mu.RLock()
	if c.client != nil && c.currentKey == key {
		defer c.mu.RUnlock()
		return c.client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.currentKey == key {
		return c.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, err
	}

	c.client = client
	c.currentKey = key
	return client, nil
}
