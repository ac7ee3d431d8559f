package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxKeywords is the number of informative terms kept from a query.
const maxKeywords = 3

// nonWord matches anything that is neither an ASCII word character nor whitespace.
var nonWord = regexp.MustCompile(`[^\w\s]`)

// stopWords are common words that carry no retrieval signal.
// Words of three characters or fewer are dropped before this check.
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "have": {},
	"will": {}, "been": {}, "were": {}, "said": {}, "each": {}, "which": {},
	"their": {}, "time": {}, "would": {}, "there": {}, "could": {}, "other": {},
}

// ExtractKeywords returns up to three informative terms from text, in the
// order they appear. Text is lowercased, punctuation becomes whitespace, and
// words of three characters or fewer and stop-words are dropped.
//
// Extraction is deterministic and stable: extracting from the joined output
// yields the same terms.
func ExtractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	keywords := make([]string, 0, maxKeywords)
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// runeSlice returns the runes of s in [from,to), clipped to its length.
func runeSlice(s string, from, to int) string {
	runes := []rune(s)
	if from >= len(runes) {
		return ""
	}
	if to > len(runes) {
		to = len(runes)
	}
	return string(runes[from:to])
}
