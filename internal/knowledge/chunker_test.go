package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

func TestChunkerSplit(t *testing.T) {
	chunker, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := chunker.Split("a b c d e f")
	require.Len(t, chunks, 2)
	assert.Equal(t, "a b c d", chunks[0].Text)
	assert.Equal(t, "d e f", chunks[1].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestChunkerSplitEmptyText(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	require.NoError(t, err)

	assert.Empty(t, chunker.Split(""))
	assert.Empty(t, chunker.Split("   \n\t  "))
}

func TestChunkerSplitShortText(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	require.NoError(t, err)

	chunks := chunker.Split("only five words right here")
	require.Len(t, chunks, 1)
	assert.Equal(t, "only five words right here", chunks[0].Text)
}

func TestChunkerSplitBounds(t *testing.T) {
	chunker, err := NewChunker(10, 3)
	require.NoError(t, err)

	words := make([]string, 47)
	for i := range words {
		words[i] = "w" + strings.Repeat("o", i%5)
	}
	chunks := chunker.Split(strings.Join(words, " "))
	require.NotEmpty(t, chunks)

	// 每个块不超过chunkSize个词，块i从i*(size-overlap)开始
	step := chunker.ChunkSize() - chunker.Overlap()
	for i, chunk := range chunks {
		chunkWords := strings.Fields(chunk.Text)
		assert.LessOrEqual(t, len(chunkWords), chunker.ChunkSize())
		assert.Equal(t, i, chunk.Index)

		start := i * step
		for j, w := range chunkWords {
			assert.Equal(t, words[start+j], w)
		}
	}
}

// 去掉重叠部分后重新拼接应还原原始词序列
func TestChunkerRejoin(t *testing.T) {
	chunker, err := NewChunker(7, 2)
	require.NoError(t, err)

	original := strings.Fields("the quick brown fox jumps over the lazy dog again and again until it stops running forever today")
	chunks := chunker.Split(strings.Join(original, " "))

	var rejoined []string
	for i, chunk := range chunks {
		chunkWords := strings.Fields(chunk.Text)
		if i > 0 && len(chunkWords) > chunker.Overlap() {
			chunkWords = chunkWords[chunker.Overlap():]
		}
		rejoined = append(rejoined, chunkWords...)
	}
	assert.Equal(t, original, rejoined)
}

func TestNewChunkerRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.size, tc.overlap)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
		})
	}
}

func TestCleanDocumentText(t *testing.T) {
	assert.Equal(t, "Hello, world. 42", CleanDocumentText("Hello,  world.\n\n42!"))
	assert.Equal(t, "", CleanDocumentText("###$$$"))
	assert.Equal(t, "a b", CleanDocumentText("  a \t b  "))
}
