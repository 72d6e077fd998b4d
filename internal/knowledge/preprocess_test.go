package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPreprocessor(t *testing.T) *TextPreprocessor {
	t.Helper()
	p, err := NewTextPreprocessor()
	require.NoError(t, err)
	return p
}

func TestCleanText(t *testing.T) {
	p := newPreprocessor(t)

	assert.Equal(t, "hello world", p.CleanText("Hello, World! 123"))
	assert.Equal(t, "one two three", p.CleanText("  One \t Two \n\n Three  "))
	assert.Equal(t, "", p.CleanText("42 + 17 = 59"))
}

func TestRemoveStopwords(t *testing.T) {
	p := newPreprocessor(t)

	filtered := p.RemoveStopwords([]string{"the", "cat", "sat", "on", "the", "mat"})
	assert.Equal(t, []string{"cat", "sat", "mat"}, filtered)
}

func TestLemmatize(t *testing.T) {
	p := newPreprocessor(t)

	cases := map[string]string{
		"running": "run",
		"studies": "study",
		"cats":    "cat",
		"makes":   "make",
		"went":    "go",
		"children": "child",
		"classes": "class",
		"document": "document",
	}
	for token, want := range cases {
		got := p.Lemmatize([]string{token})
		assert.Equal(t, []string{want}, got, "token %q", token)
	}
}

func TestPreprocessPipeline(t *testing.T) {
	p := newPreprocessor(t)

	tokens := p.Preprocess("The cats were running!")
	assert.Equal(t, []string{"cat", "run"}, tokens)
}

// 相同输入多次预处理结果必须一致
func TestPreprocessDeterminism(t *testing.T) {
	p := newPreprocessor(t)

	input := "Embedding vectors capture the semantic meaning of preprocessed document chunks."
	first := p.Preprocess(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Preprocess(input))
	}
}

func TestPreprocessAllStopwords(t *testing.T) {
	p := newPreprocessor(t)

	assert.Empty(t, p.Preprocess("the of and a to"))
}
