package dashboard

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Word struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// WordCloud counts the tokens of texts and returns the n most frequent.
// Tokens are runs of letters or digits, lower-cased, at least two runes long.
func WordCloud(texts []string, n int) []Word {
	counts := map[string]int{}
	for _, text := range texts {
		tokens := strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, tok := range tokens {
			if utf8.RuneCountInString(tok) < 2 {
				continue
			}
			counts[strings.ToLower(tok)]++
		}
	}

	words := make([]Word, 0, len(counts))
	for text, count := range counts {
		words = append(words, Word{Text: text, Count: count})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Text < words[j].Text
	})
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return words
}
