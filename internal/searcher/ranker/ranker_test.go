package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func TestSortOrdering(t *testing.T) {
	results := []Result{
		{DocName: "b", Title: "beta", Score: 5},
		{DocName: "z", Title: "Zeta", Score: 30, Secondary: true},
		{DocName: "a", Title: "Alpha", Score: 5},
		{DocName: "c", Title: "gamma", Score: 20},
		{DocName: "d", Title: "alpha", Score: 5},
	}
	Sort(results)

	var order []string
	for _, r := range results {
		order = append(order, r.DocName)
	}
	assert.Equal(t, []string{"c", "a", "d", "b", "z"}, order)
}

func TestDedupKeepsFirst(t *testing.T) {
	results := []Result{
		{Index: "q", DocName: "index", Title: "qNetVO", Score: 30},
		{Index: "q", DocName: "index", Title: "qNetVO", Score: 5},
		{Index: "q", DocName: "index", Title: "qNetVO", Anchor: "x", Score: 5},
	}
	out := Dedup(results)
	assert.Len(t, out, 2)
	assert.Equal(t, 30, out[0].Score)
}

func TestTruncate(t *testing.T) {
	rs := make([]Result, 5)
	assert.Len(t, Truncate(rs, 3), 3)
	assert.Len(t, Truncate(rs, 0), 5)
	assert.Len(t, Truncate(rs, 10), 5)
}

func TestScorerPrioWeight(t *testing.T) {
	s := DefaultScorer()
	assert.Equal(t, 15, s.PrioWeight(0))
	assert.Equal(t, -5, s.PrioWeight(2))
	assert.Equal(t, 0, s.PrioWeight(7))
}

func TestFromConfigCopiesPrio(t *testing.T) {
	c := config.ScorerConfig{ObjPrio: map[int]int{0: 1}, Title: 20}
	s := FromConfig(c)
	c.ObjPrio[0] = 99
	assert.Equal(t, 1, s.PrioWeight(0))
	assert.Equal(t, 20, s.Title)
}
