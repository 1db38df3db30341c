// Package openai adapts OpenAI-compatible chat and image endpoints to the
// llm capabilities.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"manualgen/internal/llm"
)

var ErrMissingKey = errors.New("openai api key not configured")

type KeySource interface {
	OpenAIAPIKey(ctx context.Context) (string, error)
}

type StaticKey string

func (k StaticKey) OpenAIAPIKey(context.Context) (string, error) { return string(k), nil }

func requestOptions(ctx context.Context, keys KeySource, baseURL string) ([]option.RequestOption, error) {
	key, err := keys.OpenAIAPIKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrMissingKey
	}
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(1)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts, nil
}

// TextClient implements llm.TextGenerator with chat completions.
type TextClient struct {
	keys    KeySource
	model   string
	baseURL string
}

func NewTextClient(keys KeySource, model, baseURL string) *TextClient {
	return &TextClient{keys: keys, model: model, baseURL: baseURL}
}

func (c *TextClient) Generate(ctx context.Context, system string, parts []llm.Part) (string, error) {
	opts, err := requestOptions(ctx, c.keys, c.baseURL)
	if err != nil {
		return "", err
	}
	client := openai.NewClient(opts...)

	content := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		content = append(content, contentPart(ctx, p))
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(content))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func dataURL(mediaType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))
}

// contentPart maps images to image_url parts and PDFs to file parts. Other
// media types are not accepted by chat completions and are described instead.
func contentPart(ctx context.Context, p llm.Part) openai.ChatCompletionContentPartUnionParam {
	if p.Media == nil {
		return openai.TextContentPart(p.Text)
	}
	a := p.Media
	switch {
	case strings.HasPrefix(a.MediaType, "image/"):
		return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(a.MediaType, a.Data),
		})
	case a.MediaType == "application/pdf":
		return openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(dataURL(a.MediaType, a.Data)),
			Filename: openai.String(a.Filename),
		})
	case strings.HasPrefix(a.MediaType, "text/"):
		return openai.TextContentPart(string(a.Data))
	default:
		slog.WarnContext(ctx, "attachment type not supported by provider", "filename", a.Filename, "media_type", a.MediaType)
		return openai.TextContentPart(fmt.Sprintf("(Attachment %q of type %s could not be shown to the model.)", a.Filename, a.MediaType))
	}
}

// ImageClient implements llm.ImageGenerator with the images endpoint.
type ImageClient struct {
	keys    KeySource
	model   string
	baseURL string
}

func NewImageClient(keys KeySource, model, baseURL string) *ImageClient {
	return &ImageClient{keys: keys, model: model, baseURL: baseURL}
}

func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	opts, err := requestOptions(ctx, c.keys, c.baseURL)
	if err != nil {
		return nil, err
	}
	client := openai.NewClient(opts...)

	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.model),
		N:      openai.Int(1),
	}
	if strings.HasPrefix(c.model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := client.Images.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	mediaType := "image/png"
	if f := string(resp.OutputFormat); f != "" {
		mediaType = "image/" + f
	}
	return &llm.Image{Data: data, MediaType: mediaType}, nil
}
