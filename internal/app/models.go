package app

import (
	"errors"
	"io"

	"google.golang.org/api/option"

	"manualgen/internal/adapter/gemini"
	oai "manualgen/internal/adapter/openai"
	"manualgen/internal/config"
	"manualgen/internal/llm"
)

// KeySource resolves provider keys at call time. *settings.Service
// implements it.
type KeySource interface {
	gemini.KeySource
	oai.KeySource
}

// Models holds one capability per pipeline role. The extractor and the
// synthesizer are separate instances even when they share a model name.
type Models struct {
	Extractor   llm.TextGenerator
	Synthesizer llm.TextGenerator
	Prompts     llm.TextGenerator
	Images      llm.ImageGenerator
}

func NewModels(cfg *config.Config, keys KeySource) *Models {
	if cfg.LLMProvider == config.ProviderOpenAI {
		return &Models{
			Extractor:   oai.NewTextClient(keys, cfg.ExtractorModel, cfg.OpenAIBaseURL),
			Synthesizer: oai.NewTextClient(keys, cfg.SynthesizerModel, cfg.OpenAIBaseURL),
			Prompts:     oai.NewTextClient(keys, cfg.PromptModel, cfg.OpenAIBaseURL),
			Images:      oai.NewImageClient(keys, cfg.ImageModel, cfg.OpenAIBaseURL),
		}
	}

	var clientOpts []option.ClientOption
	if cfg.GeminiBaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.GeminiBaseURL))
	}
	return &Models{
		Extractor:   gemini.NewTextClient(keys, cfg.ExtractorModel, clientOpts),
		Synthesizer: gemini.NewTextClient(keys, cfg.SynthesizerModel, clientOpts),
		Prompts:     gemini.NewTextClient(keys, cfg.PromptModel, clientOpts),
		Images:      gemini.NewImageClient(keys, cfg.ImageModel, cfg.GeminiBaseURL),
	}
}

func (m *Models) Close() error {
	var errs []error
	for _, v := range []interface{}{m.Extractor, m.Synthesizer, m.Prompts, m.Images} {
		if c, ok := v.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
