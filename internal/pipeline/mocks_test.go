package pipeline_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"manualgen/internal/imagestore"
	"manualgen/internal/llm"
	"manualgen/internal/pipeline"
)

const espressoManual = `# Espresso Machine Manual

Your machine brews cafe-quality espresso at home.

## Filling the Water Tank
Lift the lid and fill to the MAX line.

## Grinding Beans
Use a fine grind.

## Brewing
Lock the portafilter and press the brew button.`

type MockTextGenerator struct{ mock.Mock }

func (m *MockTextGenerator) Generate(ctx context.Context, system string, parts []llm.Part) (string, error) {
	args := m.Called(ctx, system, parts)
	return args.String(0), args.Error(1)
}

type MockImageGenerator struct{ mock.Mock }

func (m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Image), args.Error(1)
}

type imageFunc func(ctx context.Context, prompt string) (*llm.Image, error)

func (f imageFunc) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	return f(ctx, prompt)
}

// refStore makes the reference readable in assertions.
type refStore struct{}

func (refStore) Save(_ context.Context, img llm.Image) (string, error) {
	return "ref://" + string(img.Data), nil
}

func (refStore) Encoding() imagestore.Encoding { return imagestore.EncodingFile }

// staticPrompts derives the configured prompts, reconciled to the section count.
type staticPrompts []string

func (s staticPrompts) Derive(_ context.Context, m pipeline.Manual) []pipeline.IllustrationRequest {
	return pipeline.ReconcilePrompts(m.Sections, s)
}

// rawPrompts returns its requests without reconciling them.
type rawPrompts []pipeline.IllustrationRequest

func (r rawPrompts) Derive(context.Context, pipeline.Manual) []pipeline.IllustrationRequest {
	return r
}
