package store

import "strings"

// Match is a structured full-text query. Either Phrase is set (exact
// phrase matching) or Tokens is set (every token required, any order).
// The zero value means pure filter mode.
type Match struct {
	Phrase string
	Tokens []string
}

func (m Match) IsZero() bool {
	return m.Phrase == "" && len(m.Tokens) == 0
}

// fts renders the match in FTS5 query syntax.
func (m Match) fts() string {
	if m.Phrase != "" {
		return `"` + strings.ReplaceAll(m.Phrase, `"`, `""`) + `"`
	}
	quoted := make([]string, len(m.Tokens))
	for i, tok := range m.Tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " AND ")
}

// terms lists the strings a LIKE-based fallback must require, one
// conjunct each.
func (m Match) terms() []string {
	if m.Phrase != "" {
		return []string{m.Phrase}
	}
	return m.Tokens
}
