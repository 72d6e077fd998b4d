package knowledge

import (
	"strings"
	"unicode"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// Chunk 表示分块后的文本结构，Index是切分时分配的稳定序号
type Chunk struct {
	Index int
	Text  string
}

// Chunker 按词窗口切分文本，相邻块之间重叠overlap个词
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker 创建分块器，chunkSize必须大于overlap，否则步长为零或负数
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, apperrors.NewConfigurationError("chunk size must be positive")
	}
	if overlap < 0 {
		return nil, apperrors.NewConfigurationError("chunk overlap must not be negative")
	}
	if overlap >= chunkSize {
		return nil, apperrors.NewConfigurationError("chunk overlap must be smaller than chunk size")
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

// Split 将文本切分为多个chunk
// 块i从第i*(chunkSize-overlap)个词开始，长度不超过chunkSize个词，
// 最后一个块可能更短。空文本返回空切片。
func (c *Chunker) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var chunks []Chunk
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  strings.Join(words[start:end], " "),
		})
	}

	return chunks
}

// ChunkSize 返回配置的块大小（词数）
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap 返回配置的重叠词数
func (c *Chunker) Overlap() int {
	return c.overlap
}

// CleanDocumentText 清洗抽取出的文档文本：合并空白，去掉字母数字、空格和.,以外的字符
// 与切分前的预处理保持一致，避免页面噪声进入chunk
func CleanDocumentText(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))

	var prevSpace bool
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if prevSpace {
				continue
			}
			builder.WriteRune(' ')
			prevSpace = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == ',':
			builder.WriteRune(r)
			prevSpace = false
		default:
			// 其他符号直接丢弃
		}
	}

	return strings.TrimSpace(builder.String())
}
