// Package merger combines per-index result lists that are already in
// ranker order.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
)

// Merge does a k-way merge of sorted lists and returns at most limit
// results. limit <= 0 returns everything.
func Merge(lists [][]ranker.Result, limit int) []ranker.Result {
	total := 0
	h := &cursorHeap{}
	for _, l := range lists {
		if len(l) > 0 {
			*h = append(*h, cursor{list: l})
			total += len(l)
		}
	}
	if limit <= 0 || limit > total {
		limit = total
	}
	heap.Init(h)
	out := make([]ranker.Result, 0, limit)
	for h.Len() > 0 && len(out) < limit {
		c := &(*h)[0]
		out = append(out, c.list[c.pos])
		c.pos++
		if c.pos == len(c.list) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return out
}

type cursor struct {
	list []ranker.Result
	pos  int
}

type cursorHeap []cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	return ranker.Less(h[i].list[h[i].pos], h[j].list[h[j].pos])
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(cursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
