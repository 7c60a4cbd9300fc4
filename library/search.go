package library

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold reduces s to a comparable search key: marks (accents, Arabic
// diacritics) dropped, case folded.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// SearchBooks returns books whose title, author, code, specialization or
// department contains every word of q. An empty query returns no books.
func (lm *LibraryManager) SearchBooks(q string) []Book {
	terms := strings.Fields(fold(q))
	if len(terms) == 0 {
		return []Book{}
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	results := []Book{}
	for _, b := range lm.cur.Books {
		hay := fold(strings.Join([]string{b.Title, b.Author, b.Code, b.Specialization, b.Department}, " "))
		match := true
		for _, t := range terms {
			if !strings.Contains(hay, t) {
				match = false
				break
			}
		}
		if match {
			results = append(results, b)
		}
	}
	return results
}
