package knowledge

import (
	"strings"
	"unicode"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// TextPreprocessor 文本预处理流水线：清洗→分词→去停用词→词形还原
// 文档入库和查询必须使用同一条流水线，否则相似度没有意义
type TextPreprocessor struct {
	stopwords map[string]struct{}
	lemmas    map[string]string
}

// NewTextPreprocessor 创建预处理器并加载词典资源
// 词典加载失败是致命错误，在启动时失败而不是每个请求失败
func NewTextPreprocessor() (*TextPreprocessor, error) {
	stopwords := defaultStopwords()
	if len(stopwords) == 0 {
		return nil, apperrors.NewPreprocessingUnavailable("stopword lexicon is empty", nil)
	}
	lemmas := irregularLemmas()
	if len(lemmas) == 0 {
		return nil, apperrors.NewPreprocessingUnavailable("lemma lexicon is empty", nil)
	}
	return &TextPreprocessor{
		stopwords: stopwords,
		lemmas:    lemmas,
	}, nil
}

// CleanText 转小写，去掉字母和空白以外的字符，合并连续空白
func (p *TextPreprocessor) CleanText(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))

	var prevSpace bool
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			if prevSpace {
				continue
			}
			builder.WriteRune(' ')
			prevSpace = true
		case unicode.IsLetter(r):
			builder.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimSpace(builder.String())
}

// Tokenize 按空白切分为词元
func (p *TextPreprocessor) Tokenize(text string) []string {
	return strings.Fields(text)
}

// RemoveStopwords 去除停用词
func (p *TextPreprocessor) RemoveStopwords(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, isStop := p.stopwords[tok]; isStop {
			continue
		}
		filtered = append(filtered, tok)
	}
	return filtered
}

// Lemmatize 词形还原，先查不规则词表再应用后缀规则
func (p *TextPreprocessor) Lemmatize(tokens []string) []string {
	lemmatized := make([]string, len(tokens))
	for i, tok := range tokens {
		lemmatized[i] = p.lemma(tok)
	}
	return lemmatized
}

// Preprocess 完整流水线，顺序固定：清洗、分词、去停用词、词形还原
func (p *TextPreprocessor) Preprocess(text string) []string {
	cleaned := p.CleanText(text)
	tokens := p.Tokenize(cleaned)
	filtered := p.RemoveStopwords(tokens)
	return p.Lemmatize(filtered)
}

func (p *TextPreprocessor) lemma(token string) string {
	if base, ok := p.lemmas[token]; ok {
		return base
	}
	return stripSuffix(token)
}

// stripSuffix 应用英语屈折后缀规则，规则顺序从长到短
func stripSuffix(token string) string {
	n := len(token)
	switch {
	case n > 4 && strings.HasSuffix(token, "sses"):
		return token[:n-2]
	case n > 4 && strings.HasSuffix(token, "ies"):
		return token[:n-3] + "y"
	case n > 5 && strings.HasSuffix(token, "ing") && hasVowel(token[:n-3]):
		return restoreStem(token[:n-3])
	case n > 4 && strings.HasSuffix(token, "ied"):
		return token[:n-3] + "y"
	case n > 4 && strings.HasSuffix(token, "ed") && hasVowel(token[:n-2]):
		return restoreStem(token[:n-2])
	case n > 3 && strings.HasSuffix(token, "es") && !strings.HasSuffix(token, "ses"):
		return token[:n-1]
	case n > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && !strings.HasSuffix(token, "us"):
		return token[:n-1]
	default:
		return token
	}
}

// restoreStem 去掉后缀后的词干修复：双写辅音还原，补回词尾e
func restoreStem(stem string) string {
	n := len(stem)
	if n >= 2 && stem[n-1] == stem[n-2] && isConsonant(stem[n-1]) && stem[n-1] != 'l' && stem[n-1] != 's' {
		return stem[:n-1]
	}
	if n >= 2 {
		last := stem[n-1]
		// mak->make, us->use等以辅音+软辅音结尾的词干补e
		if last == 'v' || last == 'z' || strings.HasSuffix(stem, "at") || strings.HasSuffix(stem, "bl") || strings.HasSuffix(stem, "iz") {
			return stem + "e"
		}
	}
	return stem
}

func hasVowel(s string) bool {
	return strings.ContainsAny(s, "aeiouy")
}

func isConsonant(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	}
	return b >= 'a' && b <= 'z'
}
