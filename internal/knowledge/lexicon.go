package knowledge

// defaultStopwords 英文停用词表
func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "aren", "as", "at", "be", "because", "been",
		"before", "being", "below", "between", "both", "but", "by", "can",
		"cannot", "could", "did", "do", "does", "doing", "down", "during",
		"each", "few", "for", "from", "further", "had", "has", "have",
		"having", "he", "her", "here", "hers", "herself", "him", "himself",
		"his", "how", "i", "if", "in", "into", "is", "isn", "it", "its",
		"itself", "just", "me", "more", "most", "my", "myself", "no", "nor",
		"not", "now", "of", "off", "on", "once", "only", "or", "other",
		"our", "ours", "ourselves", "out", "over", "own", "same", "she",
		"should", "so", "some", "such", "than", "that", "the", "their",
		"theirs", "them", "themselves", "then", "there", "these", "they",
		"this", "those", "through", "to", "too", "under", "until", "up",
		"very", "was", "we", "were", "what", "when", "where", "which",
		"while", "who", "whom", "why", "will", "with", "would", "you",
		"your", "yours", "yourself", "yourselves",
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// irregularLemmas 常见不规则词形到原形的映射，后缀规则覆盖不到的部分
func irregularLemmas() map[string]string {
	return map[string]string{
		"began":    "begin",
		"begun":    "begin",
		"better":   "good",
		"best":     "good",
		"bought":   "buy",
		"brought":  "bring",
		"built":    "build",
		"came":     "come",
		"children": "child",
		"chose":    "choose",
		"chosen":   "choose",
		"data":     "datum",
		"drew":     "draw",
		"drawn":    "draw",
		"fed":      "feed",
		"feet":     "foot",
		"felt":     "feel",
		"found":    "find",
		"gave":     "give",
		"given":    "give",
		"went":     "go",
		"gone":     "go",
		"grew":     "grow",
		"grown":    "grow",
		"held":     "hold",
		"kept":     "keep",
		"knew":     "know",
		"known":    "know",
		"led":      "lead",
		"left":     "leave",
		"lost":     "lose",
		"made":     "make",
		"meant":    "mean",
		"men":      "man",
		"met":      "meet",
		"mice":     "mouse",
		"paid":     "pay",
		"people":   "person",
		"ran":      "run",
		"said":     "say",
		"saw":      "see",
		"seen":     "see",
		"sent":     "send",
		"shown":    "show",
		"sold":     "sell",
		"spoke":    "speak",
		"spoken":   "speak",
		"stood":    "stand",
		"taken":    "take",
		"taught":   "teach",
		"thought":  "think",
		"told":     "tell",
		"took":     "take",
		"understood": "understand",
		"wrote":    "write",
		"written":  "write",
		"women":    "woman",
		"worse":    "bad",
		"worst":    "bad",
	}
}
