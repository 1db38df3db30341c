package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"manualgen/internal/llm"
)

// DefaultInlineLimit is the largest attachment sent inline with the request.
// Larger attachments go through the Files API.
const DefaultInlineLimit = 18 << 20

var errFileFailed = errors.New("uploaded file failed processing")

// TextClient implements llm.TextGenerator for one Gemini model.
type TextClient struct {
	keys         KeySource
	model        string
	cache        *clientCache
	inlineLimit  int
	pollInterval time.Duration
}

type TextOption func(*TextClient)

func WithInlineLimit(n int) TextOption {
	return func(c *TextClient) { c.inlineLimit = n }
}

func WithPollInterval(d time.Duration) TextOption {
	return func(c *TextClient) { c.pollInterval = d }
}

func NewTextClient(keys KeySource, model string, clientOpts []option.ClientOption, opts ...TextOption) *TextClient {
	c := &TextClient{
		keys:         keys,
		model:        model,
		cache:        &clientCache{clientOpts: clientOpts},
		inlineLimit:  DefaultInlineLimit,
		pollInterval: 2 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *TextClient) Generate(ctx context.Context, system string, parts []llm.Part) (string, error) {
	key, err := resolveKey(ctx, c.keys)
	if err != nil {
		return "", err
	}
	client, release, err := c.cache.acquire(ctx, key)
	if err != nil {
		return "", err
	}
	defer release()

	content := make([]genai.Part, 0, len(parts))
	var uploaded []string
	defer func() {
		for _, name := range uploaded {
			if err := client.DeleteFile(context.WithoutCancel(ctx), name); err != nil {
				slog.WarnContext(ctx, "failed to delete uploaded file", "file", name, "error", err)
			}
		}
	}()

	for _, p := range parts {
		switch {
		case p.Media == nil:
			content = append(content, genai.Text(p.Text))
		case len(p.Media.Data) <= c.inlineLimit:
			content = append(content, genai.Blob{MIMEType: p.Media.MediaType, Data: p.Media.Data})
		default:
			f, err := c.upload(ctx, client, p.Media.Filename, p.Media.MediaType, p.Media.Data)
			if f != nil {
				uploaded = append(uploaded, f.Name)
			}
			if err != nil {
				return "", fmt.Errorf("upload %q: %w", p.Media.Filename, err)
			}
			content = append(content, genai.FileData{MIMEType: p.Media.MediaType, URI: f.URI})
		}
	}

	model := client.GenerativeModel(c.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, content...)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// upload sends data through the Files API and waits until it can be used.
func (c *TextClient) upload(ctx context.Context, client *genai.Client, filename, mediaType string, data []byte) (*genai.File, error) {
	f, err := client.UploadFile(ctx, "", bytes.NewReader(data), &genai.UploadFileOptions{
		DisplayName: filename,
		MIMEType:    mediaType,
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "attachment uploaded", "file", f.Name, "bytes", len(data))

	for f.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return f, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		name := f.Name
		if f, err = client.GetFile(ctx, name); err != nil {
			return &genai.File{Name: name}, err
		}
	}
	if f.State == genai.FileStateFailed {
		return f, errFileFailed
	}
	return f, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

func (c *TextClient) Close() error {
	return c.cache.Close()
}
