package searchindex

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const maxReportedProblems = 5

// Validate checks the cross-table references: the document arrays must be
// parallel and every document id, object type and object name must
// resolve. The error lists the first few problems and wraps
// ErrMalformedIndex.
func (idx *Index) Validate() error {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	n := len(idx.DocNames)
	if len(idx.Filenames) != n || len(idx.Titles) != n {
		report("docnames/filenames/titles lengths differ (%d/%d/%d)", n, len(idx.Filenames), len(idx.Titles))
	}
	inRange := func(doc int) bool { return doc >= 0 && doc < n }

	checkPostings := func(table string, m map[string]Postings) {
		for _, term := range sortedKeys(m) {
			p := m[term]
			for i, doc := range p {
				if !inRange(doc) {
					report("%s[%q]: document %d out of range", table, term, doc)
					break
				}
				if i > 0 && p[i-1] >= doc {
					report("%s[%q]: postings not strictly ascending", table, term)
					break
				}
			}
		}
	}
	checkPostings("terms", idx.Terms)
	checkPostings("titleterms", idx.TitleTerms)

	for typ := range idx.ObjTypes {
		if _, ok := idx.ObjNames[typ]; !ok {
			report("objtypes[%d]: no matching objnames entry", typ)
		}
	}
	for _, prefix := range sortedKeys(idx.Objects) {
		for _, o := range idx.Objects[prefix] {
			if !inRange(o.Doc) {
				report("objects[%q] %s: document %d out of range", prefix, o.Name, o.Doc)
			}
			if _, ok := idx.ObjTypes[o.Type]; !ok {
				report("objects[%q] %s: undeclared objtype %d", prefix, o.Name, o.Type)
			}
		}
	}
	for _, title := range sortedKeys(idx.AllTitles) {
		for _, ref := range idx.AllTitles[title] {
			if !inRange(ref.Doc) {
				report("alltitles[%q]: document %d out of range", title, ref.Doc)
			}
		}
	}
	for _, entry := range sortedKeys(idx.IndexEntries) {
		for _, ref := range idx.IndexEntries[entry] {
			if !inRange(ref.Doc) {
				report("indexentries[%q]: document %d out of range", entry, ref.Doc)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	shown := problems
	if len(shown) > maxReportedProblems {
		shown = shown[:maxReportedProblems]
	}
	msg := strings.Join(shown, "; ")
	if extra := len(problems) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return fmt.Errorf("%w: %s", apperrors.ErrMalformedIndex, msg)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
