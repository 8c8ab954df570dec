package catalog

import "strings"

// Tokenize splits a keyword string on whitespace and lowercases each word.
func Tokenize(keywords string) []string {
	words := strings.Fields(keywords)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// SearchKeywords returns the records, in input order, whose description or
// whose item number contains every keyword (case-insensitive substring).
// The keywords must all match within the same field; a query whose words are
// split between description and item number does not match.
//
// Blank keywords yield an empty result. Callers that treat "no keywords" as
// "no search" must check before calling.
func SearchKeywords(keywords string, records []Record) []Record {
	words := Tokenize(keywords)
	out := make([]Record, 0)
	if len(words) == 0 {
		return out
	}

	for _, r := range records {
		if containsAll(strings.ToLower(r.Description), words) ||
			containsAll(strings.ToLower(r.ItemNo), words) {
			out = append(out, r)
		}
	}
	return out
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
