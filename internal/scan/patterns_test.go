package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_ReferenceForms(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "parenthesized link",
			content: `see [the notes](notes.md) for details`,
			want:    []string{"notes.md"},
		},
		{
			name:    "double bracket link",
			content: `see [[notes.md]] for details`,
			want:    []string{"notes.md"},
		},
		{
			name:    "mixed forms keep order of appearance",
			content: `[[first.md]] then [x](second.md) then [[third.md]]`,
			want:    []string{"first.md", "second.md", "third.md"},
		},
		{
			name:    "duplicates preserved",
			content: `[[a.md]] and again [[a.md]]`,
			want:    []string{"a.md", "a.md"},
		},
		{
			name:    "label is not a target",
			content: `[label only, no parens follow]`,
			want:    nil,
		},
		{
			name:    "empty target never matches",
			content: `[label]() and [[]]`,
			want:    nil,
		},
		{
			name:    "relative and absolute targets kept raw",
			content: `[[../up.md]] [a](/abs/p.md)`,
			want:    []string{"../up.md", "/abs/p.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := extract(tt.content)
			assert.Equal(t, tt.want, ex.refs)
		})
	}
}

func TestExtract_Tags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "single tag",
			content: `tagged #foo here`,
			want:    []string{"foo"},
		},
		{
			name:    "word characters only",
			content: `#foo-bar #under_score #num9`,
			want:    []string{"foo", "under_score", "num9"},
		},
		{
			name:    "duplicates preserved in order",
			content: `#b #a #b`,
			want:    []string{"b", "a", "b"},
		},
		{
			name:    "bare hash is not a tag",
			content: `# heading and # alone`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := extract(tt.content)
			assert.Equal(t, tt.want, ex.tags)
		})
	}
}

func TestExtract_TagsInsideLinksStillCount(t *testing.T) {
	// The two patterns run independently over the same content.
	ex := extract(`[[plan.md]] #plan`)
	assert.Equal(t, []string{"plan.md"}, ex.refs)
	assert.Equal(t, []string{"plan"}, ex.tags)
}
