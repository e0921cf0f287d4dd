package utils

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/newspulse/newspulse/internal/models"
)

// CoerceString normalizes a dynamically typed payload field to text.
// Feed payloads arrive with mixed types; anything that is not a string
// or a byte slice is treated as empty rather than stringified, so that
// numbers and nested objects never leak into keyword matching.
func CoerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

// DetectLanguage guesses the language of the given text by script.
// Cyrillic-dominant text is "ru", Latin text is "en", and text with no
// letters at all is models.LanguageUnknown.
func DetectLanguage(text string) string {
	var cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case cyrillic == 0 && latin == 0:
		return models.LanguageUnknown
	case cyrillic > latin:
		return "ru"
	default:
		return "en"
	}
}

// Tokenize lower-cases the text and splits it into word tokens,
// stripping surrounding punctuation.
func Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// TokenizeKeywords pre-tokenizes a keyword list for ContainsTokens
// matching. Single-word keywords become one-token runs, multi-word
// keywords a run per word.
func TokenizeKeywords(keywords []string) [][]string {
	runs := make([][]string, 0, len(keywords))
	for _, kw := range keywords {
		if run := Tokenize(kw); len(run) > 0 {
			runs = append(runs, run)
		}
	}
	return runs
}

// ContainsTokens reports whether want occurs in tokens as a contiguous
// run of whole words. Substring hits inside longer words do not count,
// so "war" never matches "software".
func ContainsTokens(tokens, want []string) bool {
	if len(want) == 0 || len(want) > len(tokens) {
		return false
	}
	for i := 0; i+len(want) <= len(tokens); i++ {
		match := true
		for j, w := range want {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	// en
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"as": true, "by": true, "that": true, "this": true, "it": true, "its": true,
	"from": true, "has": true, "have": true, "had": true, "will": true, "not": true,
	"after": true, "over": true, "into": true, "about": true, "new": true,
	// ru
	"и": true, "в": true, "на": true, "с": true, "по": true, "не": true,
	"что": true, "как": true, "из": true, "за": true, "для": true, "от": true,
	"это": true, "его": true, "был": true, "была": true, "было": true,
	"он": true, "она": true, "они": true, "мы": true, "вы": true, "о": true,
	"у": true, "же": true, "бы": true, "к": true, "до": true, "или": true,
}

// ExtractKeywords returns up to max distinct keywords from the text,
// ordered by frequency then alphabetically for determinism. Stopwords
// and tokens shorter than three runes are skipped.
func ExtractKeywords(text string, max int) []string {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		if stopwords[tok] || len([]rune(tok)) < 3 {
			continue
		}
		counts[tok]++
	}

	keywords := make([]string, 0, len(counts))
	for k := range counts {
		keywords = append(keywords, k)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if max > 0 && len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}
