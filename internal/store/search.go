package store

import (
	"strings"
	"unicode"

	"github.com/fjod/go_storefront/internal/domain"
)

// SearchTerms splits a query into lower-cased words.
func SearchTerms(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// MatchesSearch reports whether every term prefixes some word of the
// product name or description.
func MatchesSearch(p domain.Product, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	words := SearchTerms(p.Name + " " + p.Description)
	for _, term := range terms {
		found := false
		for _, w := range words {
			if strings.HasPrefix(w, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
