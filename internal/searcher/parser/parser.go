// Package parser turns a raw search box string into the term sets the
// executor matches against an index.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type QueryPlan struct {
	Raw string
	// Lower is Normalize(Raw), used for title and index entry matching.
	Lower string
	// SearchTerms and ExcludedTerms are stemmed, unique, in query order.
	SearchTerms   []string
	ExcludedTerms []string
	// HighlightTerms are the lower-cased words behind SearchTerms.
	HighlightTerms []string
	// ObjectTerms are all lower-cased words, stop words included.
	ObjectTerms []string
}

// Empty reports whether the query has nothing to match.
func (p *QueryPlan) Empty() bool {
	return p.Lower == "" && len(p.SearchTerms) == 0 && len(p.ObjectTerms) == 0
}

// Parse splits on whitespace. A token starting with "-" excludes its
// words; stop words and numbers are dropped from the term sets.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Raw:   query,
		Lower: Normalize(query),
	}
	for _, w := range tokenizer.Split(plan.Lower) {
		plan.ObjectTerms = appendUnique(plan.ObjectTerms, w)
	}

	for _, raw := range strings.Fields(query) {
		exclude := false
		if strings.HasPrefix(raw, "-") {
			exclude = true
			raw = raw[1:]
		}
		for _, word := range tokenizer.Split(raw) {
			lower := strings.ToLower(word)
			if !tokenizer.Keep(lower) {
				continue
			}
			term := tokenizer.Stem(lower)
			if term == "" {
				continue
			}
			if exclude {
				plan.ExcludedTerms = appendUnique(plan.ExcludedTerms, term)
				continue
			}
			if !contains(plan.SearchTerms, term) {
				plan.SearchTerms = append(plan.SearchTerms, term)
				plan.HighlightTerms = append(plan.HighlightTerms, lower)
			}
		}
	}
	return plan
}

// Normalize lower-cases query and collapses runs of whitespace to one
// space.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
