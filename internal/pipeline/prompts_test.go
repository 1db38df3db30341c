package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"manualgen/internal/pipeline"
)

func TestModelPrompts_Arity(t *testing.T) {
	m := pipeline.NewManual(espressoManual)

	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "Zero Prompts",
			response: `[]`,
			want: []string{
				pipeline.FallbackPrompt(1, "Filling the Water Tank"),
				pipeline.FallbackPrompt(2, "Grinding Beans"),
				pipeline.FallbackPrompt(3, "Brewing"),
			},
		},
		{
			name:     "Fewer Prompts",
			response: `["tank", "beans"]`,
			want:     []string{"tank", "beans", pipeline.FallbackPrompt(3, "Brewing")},
		},
		{
			name:     "Exact Prompts",
			response: "```json\n[\"tank\", \"beans\", \"brew\"]\n```",
			want:     []string{"tank", "beans", "brew"},
		},
		{
			name:     "More Prompts",
			response: `["tank", "beans", "brew", "descale", "steam"]`,
			want:     []string{"tank", "beans", "brew"},
		},
		{
			name:     "Blank Entry",
			response: `["tank", "  ", "brew"]`,
			want:     []string{"tank", pipeline.FallbackPrompt(2, "Grinding Beans"), "brew"},
		},
		{
			name:     "Wrapped Object",
			response: `{"prompts": ["tank", "beans", "brew"]}`,
			want:     []string{"tank", "beans", "brew"},
		},
		{
			name:     "Object Entries",
			response: `[{"prompt": "tank"}, {"prompt": "beans"}, {"prompt": "brew"}]`,
			want:     []string{"tank", "beans", "brew"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockTextGenerator)
			gen.On("Generate", mock.Anything, mock.MatchedBy(func(system string) bool {
				return strings.Contains(system, "exactly 3 entries")
			}), mock.Anything).Return(tt.response, nil)

			reqs := pipeline.NewModelPrompts(gen).Derive(context.Background(), m)

			require.Len(t, reqs, 3)
			for i, r := range reqs {
				assert.Equal(t, i, r.SectionIndex)
				assert.Equal(t, m.Sections[i].Heading, r.Heading)
				assert.Equal(t, tt.want[i], r.Prompt)
			}
			gen.AssertNumberOfCalls(t, "Generate", 1)
		})
	}
}

func TestModelPrompts_FallbackDeterminism(t *testing.T) {
	m := pipeline.NewManual(espressoManual)

	derive := func(response string, err error) []pipeline.IllustrationRequest {
		gen := new(MockTextGenerator)
		gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(response, err)
		return pipeline.NewModelPrompts(gen).Derive(context.Background(), m)
	}

	first := derive("Sure! Here are some prompts: a, b, c", nil)
	second := derive("not json at all", nil)
	third := derive("", errors.New("rate limited"))

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	for i, r := range first {
		assert.Equal(t, pipeline.FallbackPrompt(i+1, m.Sections[i].Heading), r.Prompt)
		assert.Contains(t, r.Prompt, fmt.Sprintf("section %d", i+1))
	}
}

func TestModelPrompts_NoSections(t *testing.T) {
	gen := new(MockTextGenerator)
	reqs := pipeline.NewModelPrompts(gen).Derive(context.Background(), pipeline.NewManual("# Title\n\nOnly an overview."))
	assert.Empty(t, reqs)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestFallbackPrompt(t *testing.T) {
	assert.Equal(t, pipeline.FallbackPrompt(2, "Brewing"), pipeline.FallbackPrompt(2, "Brewing"))
	assert.NotEqual(t, pipeline.FallbackPrompt(1, "Brewing"), pipeline.FallbackPrompt(2, "Brewing"))
	assert.Contains(t, pipeline.FallbackPrompt(4, ""), "Section 4")
}

func TestParsePromptList(t *testing.T) {
	_, err := pipeline.ParsePromptList(`{"other": 1}`)
	assert.Error(t, err)

	got, err := pipeline.ParsePromptList(`{"prompts": [{"prompt": "a"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestParsePromptList_ProseAroundJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"Lead-in Before Fence", "Here are the prompts:\n```json\n[\"a\", \"b\"]\n```", []string{"a", "b"}},
		{"Trailing Note", "[\"a\"]\nLet me know if you need more.", []string{"a"}},
		{"Wrapped Object In Prose", "Sure! {\"prompts\": [\"x\", \"y\"]} Enjoy.", []string{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pipeline.ParsePromptList(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := pipeline.ParsePromptList("I could not think of any prompts.")
	assert.Error(t, err)
}

func TestInlinePrompts(t *testing.T) {
	m := pipeline.NewManual(espressoManual)

	reqs := pipeline.InlinePrompts{}.Derive(context.Background(), m)
	require.Len(t, reqs, 3)
	assert.Contains(t, reqs[0].Prompt, "Filling the Water Tank")
	assert.Contains(t, reqs[0].Prompt, "fill to the MAX line")
	assert.Contains(t, reqs[2].Prompt, "Brewing")

	again := pipeline.InlinePrompts{}.Derive(context.Background(), m)
	assert.Equal(t, reqs, again)

	t.Run("Long Body Is Truncated", func(t *testing.T) {
		long := "# T\n\n## Cleaning\n" + strings.Repeat("wipe ", 200)
		reqs := pipeline.InlinePrompts{}.Derive(context.Background(), pipeline.NewManual(long))
		require.Len(t, reqs, 1)
		assert.Contains(t, reqs[0].Prompt, "...")
		assert.Less(t, len(reqs[0].Prompt), 500)
	})

	t.Run("Empty Heading Falls Back", func(t *testing.T) {
		reqs := pipeline.InlinePrompts{}.Derive(context.Background(), pipeline.NewManual("# T\n\n## \nbody"))
		require.Len(t, reqs, 1)
		assert.Equal(t, pipeline.FallbackPrompt(1, ""), reqs[0].Prompt)
	})
}
