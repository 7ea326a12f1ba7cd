package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	idx := Default()
	tests := []struct {
		input  string
		expect string
	}{
		{input: "  JavaScript ", expect: "javascript"},
		{input: "JS", expect: "javascript"},
		{input: "golang", expect: "go"},
		{input: "K8s", expect: "kubernetes"},
		{input: "Amazon   Web Services", expect: "aws"},
		{input: "Elixir", expect: "elixir"},
		{input: "", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, idx.Normalize(tt.input))
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	idx := Default()
	need := Requirement{Key: "python", MinLevel: Advanced}

	tests := []struct {
		name   string
		have   *Skill
		expect Classification
	}{
		{name: "absent", have: nil, expect: Missing},
		{name: "different skill", have: &Skill{Name: "Ruby", Level: Expert}, expect: Missing},
		{name: "level above", have: &Skill{Name: "Python", Level: Expert}, expect: Matched},
		{name: "level equal", have: &Skill{Name: "py", Level: Advanced}, expect: Matched},
		{name: "level below", have: &Skill{Name: "Python", Level: Intermediate}, expect: Partial},
		{name: "keyword alias", have: &Skill{Name: "Scripting", Level: Expert, Keywords: []string{"Python"}}, expect: Matched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, idx.Compare(tt.have, need))
		})
	}
}

func TestClassificationWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Matched.Weight())
	assert.Equal(t, 0.5, Partial.Weight())
	assert.Equal(t, 0.0, Missing.Weight())
}

func TestFind(t *testing.T) {
	t.Parallel()

	have := []Skill{
		{Name: "Docker", Level: Intermediate},
		{Name: "JS", Level: Advanced},
	}

	found := Default().Find(have, "javascript")
	require.NotNil(t, found)
	assert.Equal(t, "JS", found.Name)
	assert.Nil(t, Default().Find(have, "rust"))
}

func TestExtract(t *testing.T) {
	t.Parallel()

	text := "We use Golang, Kubernetes and PostgreSQL. Experience with React.js and C++ is a plus; reactive minds welcome. Let's go!"
	keys := Default().Extract(text)

	assert.Equal(t, []string{"c++", "go", "kubernetes", "postgresql", "react"}, keys)
}

func TestNewIndexExtraSynonyms(t *testing.T) {
	t.Parallel()

	idx := NewIndex(map[string][]string{"elixir": {"ex"}})
	assert.Equal(t, "elixir", idx.Normalize("EX"))
	assert.Equal(t, "javascript", idx.Normalize("js"))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	lvl, err := ParseLevel("beginner")
	require.NoError(t, err)
	assert.Equal(t, Novice, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, Intermediate, lvl)

	_, err = ParseLevel("guru")
	require.Error(t, err)

	assert.True(t, Novice < Intermediate && Intermediate < Advanced && Advanced < Expert)
}
