package executor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const fixturePath = "../../searchindex/testdata/qnetvo_searchindex.js"

func qnetvoTarget(t testing.TB) *Target {
	t.Helper()
	idx, err := searchindex.Load(fixturePath)
	require.NoError(t, err)
	return Prepare(config.IndexSource{
		Name:    "qnetvo",
		Path:    fixturePath,
		URLRoot: "https://qnetvo.example.org/",
	}, idx)
}

func pennylaneTarget() *Target {
	m := index.NewMemoryIndex()
	m.AddDocument(index.Document{
		DocName: "index",
		Title:   "PennyLane",
		Body:    "Quantum network toolkit",
		IndexEntries: []index.IndexEntryDef{
			{Entry: "optimizer", Anchor: "opt"},
		},
		Objects: []index.ObjectDef{{FullName: "pennylane.qnode", Type: "py:function", Priority: 1}},
	})
	return Prepare(config.IndexSource{Name: "pennylane", URLRoot: "/pl/", Builder: "dirhtml"}, m.Snapshot())
}

type staticSource map[string]*Target

func (s staticSource) Get(name string) (*Target, bool) {
	t, ok := s[name]
	return t, ok
}

func (s staticSource) All() []*Target {
	out := make([]*Target, 0, len(s))
	for _, t := range s {
		out = append(out, t)
	}
	return out
}

func search(t *testing.T, target *Target, q string) []ranker.Result {
	t.Helper()
	res, err := target.Search(context.Background(), parser.Parse(q), ranker.DefaultScorer())
	require.NoError(t, err)
	return res
}

func TestSearchTitleBeatsText(t *testing.T) {
	res := search(t, qnetvoTarget(t), "CHSH inequality")
	require.Len(t, res, 6, "duplicate object hits collapse")

	top := res[0]
	assert.Equal(t, ranker.KindTitle, top.Kind)
	assert.Equal(t, "CHSH Inequality", top.Title)
	assert.Equal(t, "chsh-inequality", top.Anchor)
	assert.Equal(t, 101, top.Score)
	assert.Equal(t, "qnetvo", top.Index)
	assert.Equal(t,
		"https://qnetvo.example.org/cost/nonlocality_witnesses/chsh_inequality.html#chsh-inequality",
		top.URL)

	assert.Equal(t, ranker.KindText, res[1].Kind)
	assert.Equal(t, 15, res[1].Score)
	assert.Equal(t, "CHSH Inequality", res[1].Title)
	assert.Equal(t, "I-3322 Inequality", res[2].Title)
	assert.Equal(t, "Nonlocality Witnesses", res[5].Title)
}

func TestSearchObjects(t *testing.T) {
	res := search(t, qnetvoTarget(t), "optimization")
	require.NotEmpty(t, res)
	assert.Equal(t, "Optimization", res[0].Title)
	assert.Equal(t, 101, res[0].Score)

	var obj *ranker.Result
	for i := range res {
		if res[i].Title == "qnetvo.read_optimization_json" {
			obj = &res[i]
		}
	}
	require.NotNil(t, obj)
	assert.Equal(t, ranker.KindObject, obj.Kind)
	assert.Equal(t, 11, obj.Score)
	assert.Equal(t, "Python function, in Utilities", obj.Description)
	assert.Equal(t, "qnetvo.read_optimization_json", obj.Anchor)
	assert.Equal(t, "https://qnetvo.example.org/utilities.html#qnetvo.read_optimization_json", obj.URL)
}

func TestSearchExactObjectName(t *testing.T) {
	res := search(t, qnetvoTarget(t), "NetworkAnsatz")
	require.NotEmpty(t, res)
	assert.Equal(t, "qnetvo.NetworkAnsatz", res[0].Title)
	assert.Equal(t, 16, res[0].Score, "name match plus default priority")
	assert.Equal(t, "Python class, in Network Ansatzes", res[0].Description)
}

func TestSearchSectionTitles(t *testing.T) {
	res := search(t, qnetvoTarget(t), "Contents:")
	require.GreaterOrEqual(t, len(res), 3)
	assert.Equal(t, "Cost Functions > Contents:", res[0].Title)
	assert.Equal(t, "Nonlocality Witnesses > Contents:", res[1].Title)
	assert.Equal(t, "Quantum Networks > Contents:", res[2].Title)
	assert.Equal(t, 100, res[0].Score)
	assert.Empty(t, res[0].Anchor)
	assert.Equal(t, "https://qnetvo.example.org/cost/index.html", res[0].URL)
}

func TestSearchExclusion(t *testing.T) {
	with := search(t, qnetvoTarget(t), "network")
	without := search(t, qnetvoTarget(t), "network -tomography")

	docs := func(rs []ranker.Result) map[string]bool {
		out := make(map[string]bool)
		for _, r := range rs {
			if r.Kind == ranker.KindText {
				out[r.DocName] = true
			}
		}
		return out
	}
	assert.True(t, docs(with)["utilities"])
	assert.False(t, docs(without)["utilities"])
	assert.True(t, docs(without)["quantum_networks/network_nodes"])
	assert.Equal(t, "Network Nodes", with[0].Title)
	assert.Equal(t, 55, with[0].Score)
}

func TestSearchPartialTermMatch(t *testing.T) {
	res := search(t, qnetvoTarget(t), "tomograph")
	var found bool
	for _, r := range res {
		if r.Kind == ranker.KindText && r.DocName == "utilities" {
			found = true
			assert.Equal(t, 7, r.Score, "substring of a title term")
		}
	}
	assert.True(t, found)
}

func TestSearchShortStemKeepsWord(t *testing.T) {
	idx, err := searchindex.Load(fixturePath)
	require.NoError(t, err)
	target := qnetvoTarget(t)

	for _, word := range []string{"one", "being", "its"} {
		postings, ok := idx.Terms[word]
		require.True(t, ok, word)

		got := make(map[string]bool)
		for _, r := range search(t, target, word) {
			if r.Kind == ranker.KindText {
				got[r.DocName] = true
			}
		}
		for _, id := range postings {
			assert.True(t, got[idx.DocNames[id]], "%s should match %s", word, idx.DocNames[id])
		}
	}
}

func TestSearchCollapsesQueryWhitespace(t *testing.T) {
	target := qnetvoTarget(t)
	single := search(t, target, "CHSH inequality")
	double := search(t, target, "CHSH  inequality")
	require.NotEmpty(t, double)
	assert.Equal(t, "CHSH Inequality", double[0].Title)
	assert.Equal(t, 101, double[0].Score)
	assert.Equal(t, single, double)
}

func TestLabelRunesIgnoreSurroundingSpace(t *testing.T) {
	labels := newLabelled(map[string][]int{"  Optimizer  ": {0}})
	require.Len(t, labels, 1)
	assert.Equal(t, "optimizer", labels[0].lower)
	assert.Equal(t, 9, labels[0].runes)

	score, ok := titleScore("optimizer", 9, labels[0].lower, labels[0].runes)
	require.True(t, ok, "padding must not push the label past twice the query length")
	assert.Equal(t, 100, score)
}

func TestSearchStopWordsOnly(t *testing.T) {
	res := search(t, qnetvoTarget(t), "the")
	for _, r := range res {
		assert.NotEqual(t, ranker.KindText, r.Kind)
	}
}

func TestSearchHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := qnetvoTarget(t).Search(ctx, parser.Parse("network"), ranker.DefaultScorer())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		src    config.IndexSource
		doc    string
		anchor string
		want   string
	}{
		{config.IndexSource{}, "optimization", "", "optimization.html"},
		{config.IndexSource{URLRoot: "/docs/", FileSuffix: ".htm"}, "utilities", "file-i-o", "/docs/utilities.htm#file-i-o"},
		{config.IndexSource{Builder: "dirhtml"}, "utilities", "", "utilities/"},
		{config.IndexSource{Builder: "dirhtml"}, "cost/index", "", "cost/"},
		{config.IndexSource{Builder: "dirhtml", URLRoot: "/"}, "index", "features", "/#features"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildURL(tt.src, tt.doc, tt.anchor))
	}
}

func TestMultiMergesIndexes(t *testing.T) {
	m := NewMulti(staticSource{"qnetvo": qnetvoTarget(t), "pennylane": pennylaneTarget()}, ranker.DefaultScorer(), time.Second)

	res, err := m.Search(context.Background(), "optimizer", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pennylane", "qnetvo"}, res.Indexes)
	assert.Equal(t, []string{"optimizer"}, res.HighlightTerms)
	require.NotEmpty(t, res.Results)

	last := res.Results[len(res.Results)-1]
	assert.True(t, last.Secondary)
	assert.Equal(t, "pennylane", last.Index)
	assert.Equal(t, "optimizer", last.Description)
	assert.Equal(t, "/pl/#opt", last.URL)
	assert.Equal(t, len(res.Results), res.TotalHits)
}

func TestMultiLimitAndSelection(t *testing.T) {
	m := NewMulti(staticSource{"qnetvo": qnetvoTarget(t), "pennylane": pennylaneTarget()}, ranker.DefaultScorer(), 0)

	res, err := m.Search(context.Background(), "network", 3, []string{"qnetvo"})
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	assert.Greater(t, res.TotalHits, 3)
	for _, r := range res.Results {
		assert.Equal(t, "qnetvo", r.Index)
	}

	_, err = m.Search(context.Background(), "network", 3, []string{"missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIndexNotFound))
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatusCode(err))
}

func TestMultiEmptyQuery(t *testing.T) {
	m := NewMulti(staticSource{"qnetvo": qnetvoTarget(t)}, ranker.DefaultScorer(), time.Second)
	res, err := m.Search(context.Background(), "   ", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)
}

func TestMultiFailsWhenEveryIndexFails(t *testing.T) {
	m := NewMulti(staticSource{"qnetvo": qnetvoTarget(t)}, ranker.DefaultScorer(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Search(ctx, "network", 10, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookup(t *testing.T) {
	m := NewMulti(staticSource{"qnetvo": qnetvoTarget(t), "pennylane": pennylaneTarget()}, ranker.DefaultScorer(), time.Second)

	hits, err := m.Lookup(context.Background(), "qnetvo.NetworkAnsatz", nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "qnetvo", hits[0].Index)
	assert.Equal(t, "py:class", hits[0].Kind)
	assert.Equal(t, "quantum_networks/network_ansatzes", hits[0].DocName)
	assert.Equal(t, "https://qnetvo.example.org/quantum_networks/network_ansatzes.html#qnetvo.NetworkAnsatz", hits[0].URL)

	hits, err = m.Lookup(context.Background(), "qnode", nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/pl/#pennylane.qnode", hits[0].URL)

	_, err = m.Lookup(context.Background(), "qnetvo.nope", nil)
	assert.True(t, errors.Is(err, apperrors.ErrObjectNotFound))
	_, err = m.Lookup(context.Background(), " ", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestSummary(t *testing.T) {
	s := qnetvoTarget(t).Summary()
	assert.Equal(t, 19, s.Documents)
	assert.Equal(t, 1177, s.Terms)
	assert.Equal(t, 77, s.TitleTerms)
	assert.Equal(t, 68, s.Objects)
	assert.Equal(t, 52, s.Titles)
	assert.Equal(t, 68, s.Entries)
}

func BenchmarkSearch(b *testing.B) {
	target := qnetvoTarget(b)
	plan := parser.Parse("quantum network optimization")
	s := ranker.DefaultScorer()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = target.Search(context.Background(), plan, s)
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	target := qnetvoTarget(b)
	plan := parser.Parse("chsh inequality")
	s := ranker.DefaultScorer()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = target.Search(context.Background(), plan, s)
		}
	})
}
