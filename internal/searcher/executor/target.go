package executor

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Target is a loaded index prepared for querying. It is immutable once
// built; reloads replace the whole Target.
type Target struct {
	Name   string
	Source config.IndexSource
	Index  *searchindex.Index

	terms      postingTable
	titleTerms postingTable
	titles     []labelled[searchindex.TitleRef]
	entries    []labelled[searchindex.EntryRef]
}

// postingTable keeps postings as bitmaps plus the keys in sorted order for
// substring scans.
type postingTable struct {
	keys []string
	bits map[string]*roaring.Bitmap
}

type labelled[R any] struct {
	text  string
	lower string
	runes int
	refs  []R
}

// Prepare builds the query structures for idx.
func Prepare(src config.IndexSource, idx *searchindex.Index) *Target {
	return &Target{
		Name:       src.Name,
		Source:     src,
		Index:      idx,
		terms:      newPostingTable(idx.Terms),
		titleTerms: newPostingTable(idx.TitleTerms),
		titles:     newLabelled(idx.AllTitles),
		entries:    newLabelled(idx.IndexEntries),
	}
}

func newPostingTable(m map[string]searchindex.Postings) postingTable {
	t := postingTable{
		keys: make([]string, 0, len(m)),
		bits: make(map[string]*roaring.Bitmap, len(m)),
	}
	for k, p := range m {
		bm := roaring.New()
		for _, d := range p {
			bm.Add(uint32(d))
		}
		bm.RunOptimize()
		t.keys = append(t.keys, k)
		t.bits[k] = bm
	}
	sort.Strings(t.keys)
	return t
}

func newLabelled[R any](m map[string][]R) []labelled[R] {
	out := make([]labelled[R], 0, len(m))
	for text, refs := range m {
		lower := strings.ToLower(strings.TrimSpace(text))
		out = append(out, labelled[R]{
			text:  text,
			lower: lower,
			runes: utf8.RuneCountInString(lower),
			refs:  refs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].text < out[j].text })
	return out
}

// Summary describes a loaded index.
type Summary struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Documents  int    `json:"documents"`
	Terms      int    `json:"terms"`
	TitleTerms int    `json:"title_terms"`
	Objects    int    `json:"objects"`
	Titles     int    `json:"titles"`
	Entries    int    `json:"index_entries"`
}

func (t *Target) Summary() Summary {
	return Summary{
		Name:       t.Name,
		Path:       t.Source.Path,
		Documents:  t.Index.DocCount(),
		Terms:      len(t.terms.keys),
		TitleTerms: len(t.titleTerms.keys),
		Objects:    t.Index.ObjectCount(),
		Titles:     len(t.titles),
		Entries:    len(t.entries),
	}
}

// URL links a document, and optionally an anchor within it, the way the
// HTML builder that produced the index lays out its pages.
func (t *Target) URL(docName, anchor string) string {
	return BuildURL(t.Source, docName, anchor)
}

// BuildURL is URL for an arbitrary source. The "dirhtml" builder serves
// every page as a directory; "index" pages collapse onto their parent.
func BuildURL(src config.IndexSource, docName, anchor string) string {
	var page string
	if src.Builder == "dirhtml" {
		dir := docName + "/"
		switch {
		case dir == "index/":
			page = ""
		case strings.HasSuffix(dir, "/index/"):
			page = strings.TrimSuffix(dir, "index/")
		default:
			page = dir
		}
	} else {
		suffix := src.FileSuffix
		if suffix == "" {
			suffix = ".html"
		}
		page = docName + suffix
	}
	u := src.URLRoot + page
	if anchor != "" {
		u += "#" + anchor
	}
	return u
}
