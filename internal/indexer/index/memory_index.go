// Package index builds a searchindex.js from documentation pages. Pages are
// kept per docname so they can be replaced or removed, and Snapshot derives
// the inverted tables on demand.
package index

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type titleRef struct {
	title  string
	anchor string
}

// docEntry is everything the index keeps about one page. Body text is not
// retained, only its terms.
type docEntry struct {
	docName    string
	filename   string
	title      string
	titleTerms map[string]struct{}
	bodyTerms  map[string]struct{}
	titles     []titleRef
	objects    []ObjectDef
	entries    []IndexEntryDef
	size       int64
}

type MemoryIndex struct {
	mu         sync.RWMutex
	docs       map[string]*docEntry
	envVersion map[string]int
	size       int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:       make(map[string]*docEntry),
		envVersion: map[string]int{"docsearch": 1},
	}
}

// AddDocument indexes doc, replacing any previous version with the same
// docname.
func (m *MemoryIndex) AddDocument(doc Document) {
	e := &docEntry{
		docName:    doc.DocName,
		filename:   doc.Filename,
		title:      doc.Title,
		titleTerms: make(map[string]struct{}),
		bodyTerms:  make(map[string]struct{}),
		objects:    append([]ObjectDef(nil), doc.Objects...),
		entries:    append([]IndexEntryDef(nil), doc.IndexEntries...),
	}

	for _, term := range tokenizer.Terms(doc.Title) {
		e.titleTerms[term] = struct{}{}
	}
	docTitleIsSection := false
	for _, s := range doc.Sections {
		for _, term := range tokenizer.Terms(s.Title) {
			e.titleTerms[term] = struct{}{}
		}
		if s.Title == doc.Title {
			docTitleIsSection = true
		}
	}
	if doc.Title != "" && !docTitleIsSection {
		e.titles = append(e.titles, titleRef{title: doc.Title})
	}
	for _, s := range doc.Sections {
		e.titles = append(e.titles, titleRef{title: s.Title, anchor: s.Anchor})
	}

	for _, term := range tokenizer.Terms(doc.Body) {
		if _, isTitle := e.titleTerms[term]; !isTitle {
			e.bodyTerms[term] = struct{}{}
		}
	}
	e.size = e.estimateSize()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(e)
}

func (m *MemoryIndex) put(e *docEntry) {
	if old, ok := m.docs[e.docName]; ok {
		m.size -= old.size
	}
	m.docs[e.docName] = e
	m.size += e.size
}

// RemoveDocument drops docname and reports whether it was present.
func (m *MemoryIndex) RemoveDocument(docName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.docs[docName]
	if !ok {
		return false
	}
	m.size -= e.size
	delete(m.docs, docName)
	return true
}

// Has reports whether docname is indexed.
func (m *MemoryIndex) Has(docName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[docName]
	return ok
}

// SetEnvVersion replaces the environment version table written with the
// index.
func (m *MemoryIndex) SetEnvVersion(v map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envVersion = make(map[string]int, len(v))
	for k, n := range v {
		m.envVersion[k] = n
	}
}

// Size is an estimate of the memory held, in bytes.
func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]*docEntry)
	m.size = 0
}

func (e *docEntry) estimateSize() int64 {
	n := int64(len(e.docName) + len(e.filename) + len(e.title) + 128)
	for t := range e.titleTerms {
		n += int64(len(t)) + 16
	}
	for t := range e.bodyTerms {
		n += int64(len(t)) + 16
	}
	for _, t := range e.titles {
		n += int64(len(t.title)+len(t.anchor)) + 32
	}
	for _, o := range e.objects {
		n += int64(len(o.FullName)+len(o.Type)+len(o.Label)+len(o.Anchor)) + 48
	}
	for _, ie := range e.entries {
		n += int64(len(ie.Entry)+len(ie.Anchor)) + 40
	}
	return n
}
