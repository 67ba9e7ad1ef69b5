// Package ranker holds the result type shared by the search pipeline and
// the weights and ordering rules applied to it.
package ranker

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Result kinds.
const (
	KindTitle      = "title"
	KindIndexEntry = "indexentry"
	KindObject     = "object"
	KindText       = "text"
)

type Result struct {
	Index       string `json:"index"`
	DocName     string `json:"docname"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Anchor      string `json:"anchor,omitempty"`
	Description string `json:"description,omitempty"`
	Score       int    `json:"score"`
	Kind        string `json:"kind"`
	// Secondary results are non-main index entries, listed after all
	// primary results.
	Secondary bool   `json:"secondary,omitempty"`
	URL       string `json:"url"`
}

// Scorer holds the relevance weights.
type Scorer struct {
	ObjNameMatch    int
	ObjPartialMatch int
	ObjPrio         map[int]int
	ObjPrioDefault  int
	Title           int
	PartialTitle    int
	Term            int
	PartialTerm     int
}

// DefaultScorer returns the documentation generator's stock weights.
func DefaultScorer() Scorer {
	return Scorer{
		ObjNameMatch:    11,
		ObjPartialMatch: 6,
		ObjPrio:         map[int]int{0: 15, 1: 5, 2: -5},
		ObjPrioDefault:  0,
		Title:           15,
		PartialTitle:    7,
		Term:            5,
		PartialTerm:     2,
	}
}

// FromConfig builds a Scorer from YAML weights.
func FromConfig(c config.ScorerConfig) Scorer {
	prio := make(map[int]int, len(c.ObjPrio))
	for k, v := range c.ObjPrio {
		prio[k] = v
	}
	return Scorer{
		ObjNameMatch:    c.ObjNameMatch,
		ObjPartialMatch: c.ObjPartialMatch,
		ObjPrio:         prio,
		ObjPrioDefault:  c.ObjPrioDefault,
		Title:           c.Title,
		PartialTitle:    c.PartialTitle,
		Term:            c.Term,
		PartialTerm:     c.PartialTerm,
	}
}

// PrioWeight is the bonus for an object's search priority.
func (s Scorer) PrioWeight(prio int) int {
	if w, ok := s.ObjPrio[prio]; ok {
		return w
	}
	return s.ObjPrioDefault
}

// Less orders a before b: primary before secondary, higher score first,
// then title case-insensitively, then docname.
func Less(a, b Result) bool {
	if a.Secondary != b.Secondary {
		return !a.Secondary
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
	if at != bt {
		return at < bt
	}
	if a.DocName != b.DocName {
		return a.DocName < b.DocName
	}
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return a.Anchor < b.Anchor
}

// Sort orders results in place.
func Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return Less(results[i], results[j]) })
}

type dedupKey struct {
	index, docName, title, anchor, descr, filename string
}

// Dedup keeps the first of results that would render identically. Input
// order is preserved, so callers sort first to keep the best-scored copy.
func Dedup(results []Result) []Result {
	seen := make(map[dedupKey]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		k := dedupKey{r.Index, r.DocName, r.Title, r.Anchor, r.Description, r.Filename}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Truncate caps results at limit; limit <= 0 keeps everything.
func Truncate(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
