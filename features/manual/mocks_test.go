package manual_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"manualgen/features/run"
	"manualgen/internal/llm"
	"manualgen/internal/pipeline"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, r *run.Run) {
	m.Called(ctx, r)
	r.ID = "8c5e0d1e-6d44-4b7e-9d0e-1f2a3b4c5d6e"
}

const kettleManual = "# Kettle Manual\n\nBoils water.\n\n## Filling\nOpen the lid.\n\n## Boiling\nPress the switch."

func illustratedResult() *pipeline.Result {
	m := pipeline.NewManual(kettleManual)
	return &pipeline.Result{
		Markdown: "# Kettle Manual\n\nBoils water.\n\n## Filling\n\n![Section illustration 1](data:image/png;base64,b25l)\n\nOpen the lid.\n\n## Boiling\n\n> **[Illustration missing]** Section illustration 2 could not be generated.\n\nPress the switch.",
		Manual:   m,
		Illustrations: []pipeline.IllustrationResult{
			{SectionIndex: 0, Prompt: "fill", Image: &llm.Image{Data: []byte("one"), MediaType: "image/png"}, Ref: "data:image/png;base64,b25l"},
			{SectionIndex: 1, Prompt: "boil", Error: "refused"},
		},
	}
}
