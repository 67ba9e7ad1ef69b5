package executor

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
)

// Search runs every matcher against the index and returns the results in
// ranker order, deduplicated.
func (t *Target) Search(ctx context.Context, plan *parser.QueryPlan, s ranker.Scorer) ([]ranker.Result, error) {
	var results []ranker.Result
	steps := []func(*parser.QueryPlan, ranker.Scorer) []ranker.Result{
		t.searchTitles,
		t.searchEntries,
		t.searchObjects,
		t.searchText,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, step(plan, s)...)
	}
	for i := range results {
		results[i].Index = t.Name
		results[i].URL = t.URL(results[i].DocName, results[i].Anchor)
	}
	ranker.Sort(results)
	return ranker.Dedup(results), nil
}

func (t *Target) doc(i int) searchindex.Document {
	d, _ := t.Index.Doc(i)
	return d
}

// titleScore applies the containment rule shared by section titles and
// index entries: the query must appear in the label and cover at least
// half of it.
func titleScore(q string, qRunes int, lower string, runes int) (int, bool) {
	if runes == 0 || 2*qRunes < runes || !strings.Contains(lower, q) {
		return 0, false
	}
	return int(math.Round(100 * float64(qRunes) / float64(runes))), true
}

func (t *Target) searchTitles(plan *parser.QueryPlan, _ ranker.Scorer) []ranker.Result {
	if plan.Lower == "" {
		return nil
	}
	qRunes := utf8.RuneCountInString(plan.Lower)
	var out []ranker.Result
	for _, l := range t.titles {
		score, ok := titleScore(plan.Lower, qRunes, l.lower, l.runes)
		if !ok {
			continue
		}
		for _, ref := range l.refs {
			d := t.doc(ref.Doc)
			title := l.text
			boost := 1
			if d.Title != l.text {
				title = d.Title + " > " + l.text
				boost = 0
			}
			out = append(out, ranker.Result{
				DocName:  d.DocName,
				Filename: d.Filename,
				Title:    title,
				Anchor:   ref.Anchor,
				Score:    score + boost,
				Kind:     ranker.KindTitle,
			})
		}
	}
	return out
}

func (t *Target) searchEntries(plan *parser.QueryPlan, _ ranker.Scorer) []ranker.Result {
	if plan.Lower == "" {
		return nil
	}
	qRunes := utf8.RuneCountInString(plan.Lower)
	var out []ranker.Result
	for _, l := range t.entries {
		score, ok := titleScore(plan.Lower, qRunes, l.lower, l.runes)
		if !ok {
			continue
		}
		for _, ref := range l.refs {
			d := t.doc(ref.Doc)
			out = append(out, ranker.Result{
				DocName:     d.DocName,
				Filename:    d.Filename,
				Title:       d.Title,
				Anchor:      ref.Anchor,
				Description: l.text,
				Score:       score,
				Kind:        ranker.KindIndexEntry,
				Secondary:   !ref.Main,
			})
		}
	}
	return out
}

func (t *Target) searchObjects(plan *parser.QueryPlan, s ranker.Scorer) []ranker.Result {
	var out []ranker.Result
	for _, term := range plan.ObjectTerms {
		t.Index.EachObject(func(prefix string, o searchindex.Object) bool {
			full := searchindex.FullName(prefix, o.Name)
			fullLower := strings.ToLower(full)
			if !strings.Contains(fullLower, term) {
				return true
			}
			score := 0
			last := fullLower[strings.LastIndexByte(fullLower, '.')+1:]
			switch {
			case fullLower == term || last == term:
				score += s.ObjNameMatch
			case strings.Contains(last, term):
				score += s.ObjPartialMatch
			}

			ref := t.Index.ResolveObject(prefix, o)
			if len(plan.ObjectTerms) > 1 {
				haystack := strings.ToLower(prefix + " " + o.Name + " " + ref.Label + " " + ref.Title)
				for _, other := range plan.ObjectTerms {
					if other != term && !strings.Contains(haystack, other) {
						return true
					}
				}
			}
			out = append(out, ranker.Result{
				DocName:     ref.DocName,
				Filename:    ref.Filename,
				Title:       full,
				Anchor:      ref.Anchor,
				Description: ref.Label + ", in " + ref.Title,
				Score:       score + s.PrioWeight(o.Priority),
				Kind:        ranker.KindObject,
			})
			return true
		})
	}
	return out
}

func (t *Target) searchText(plan *parser.QueryPlan, s ranker.Scorer) []ranker.Result {
	if len(plan.SearchTerms) == 0 {
		return nil
	}
	best := make(map[uint32]int)
	var all, long *roaring.Bitmap

	for _, word := range plan.SearchTerms {
		matched := roaring.New()
		add := func(bm *roaring.Bitmap, score int) {
			if bm == nil {
				return
			}
			matched.Or(bm)
			it := bm.Iterator()
			for it.HasNext() {
				d := it.Next()
				if cur, ok := best[d]; !ok || score > cur {
					best[d] = score
				}
			}
		}
		add(t.terms.bits[word], s.Term)
		add(t.titleTerms.bits[word], s.Title)

		isLong := utf8.RuneCountInString(word) > 2
		if isLong {
			for _, pt := range []struct {
				table postingTable
				score int
			}{{t.terms, s.PartialTerm}, {t.titleTerms, s.PartialTitle}} {
				if _, exact := pt.table.bits[word]; exact {
					continue
				}
				for _, k := range pt.table.keys {
					if strings.Contains(k, word) {
						add(pt.table.bits[k], pt.score)
					}
				}
			}
		}

		all = intersect(all, matched)
		if isLong {
			long = intersect(long, matched)
		}
	}

	hits := all
	if long != nil {
		hits = roaring.Or(all, long)
	}
	for _, ex := range plan.ExcludedTerms {
		if bm := t.terms.bits[ex]; bm != nil {
			hits.AndNot(bm)
		}
		if bm := t.titleTerms.bits[ex]; bm != nil {
			hits.AndNot(bm)
		}
	}

	out := make([]ranker.Result, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		id := it.Next()
		d := t.doc(int(id))
		out = append(out, ranker.Result{
			DocName:  d.DocName,
			Filename: d.Filename,
			Title:    d.Title,
			Score:    best[id],
			Kind:     ranker.KindText,
		})
	}
	return out
}

// intersect returns acc ∩ bm, treating a nil acc as the universe.
func intersect(acc, bm *roaring.Bitmap) *roaring.Bitmap {
	if acc == nil {
		return bm.Clone()
	}
	acc.And(bm)
	return acc
}
