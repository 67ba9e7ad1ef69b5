package index

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
)

type placedObject struct {
	def ObjectDef
	doc int
}

// Snapshot renders the current pages as a search index. Document ids follow
// sorted docname order. Object type ids are assigned in order of first
// appearance over objects sorted by full name, and objects are filed under
// the dotted prefix of their full name.
func (m *MemoryIndex) Snapshot() *searchindex.Index {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	sort.Strings(names)

	idx := &searchindex.Index{
		DocNames:     names,
		Filenames:    make([]string, len(names)),
		Titles:       make([]string, len(names)),
		Terms:        make(map[string]searchindex.Postings),
		TitleTerms:   make(map[string]searchindex.Postings),
		Objects:      make(searchindex.ObjectTable),
		ObjTypes:     make(map[int]string),
		ObjNames:     make(map[int]searchindex.ObjName),
		EnvVersion:   make(map[string]int, len(m.envVersion)),
		AllTitles:    make(map[string][]searchindex.TitleRef),
		IndexEntries: make(map[string][]searchindex.EntryRef),
	}
	for k, v := range m.envVersion {
		idx.EnvVersion[k] = v
	}

	var objects []placedObject
	for i, name := range names {
		e := m.docs[name]
		idx.Filenames[i] = e.filename
		idx.Titles[i] = e.title
		for term := range e.titleTerms {
			idx.TitleTerms[term] = append(idx.TitleTerms[term], i)
		}
		for term := range e.bodyTerms {
			idx.Terms[term] = append(idx.Terms[term], i)
		}
		for _, t := range e.titles {
			idx.AllTitles[t.title] = append(idx.AllTitles[t.title], searchindex.TitleRef{Doc: i, Anchor: t.anchor})
		}
		for _, ie := range e.entries {
			idx.IndexEntries[ie.Entry] = append(idx.IndexEntries[ie.Entry], searchindex.EntryRef{Doc: i, Anchor: ie.Anchor, Main: ie.Main})
		}
		for _, o := range e.objects {
			if o.Priority >= 0 {
				objects = append(objects, placedObject{def: o, doc: i})
			}
		}
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].def.FullName < objects[j].def.FullName
	})
	typeIDs := make(map[string]int)
	for _, po := range objects {
		kind := po.def.Type
		typ, ok := typeIDs[kind]
		if !ok {
			typ = len(typeIDs)
			typeIDs[kind] = typ
			idx.ObjTypes[typ] = kind
			idx.ObjNames[typ] = objName(kind, po.def.Label)
		}
		role := idx.ObjNames[typ].Role
		prefix, name := splitFullName(po.def.FullName)
		idx.Objects[prefix] = append(idx.Objects[prefix], searchindex.Object{
			Doc:      po.doc,
			Type:     typ,
			Priority: po.def.Priority,
			Anchor:   compressAnchor(po.def.Anchor, role, po.def.FullName),
			Name:     name,
		})
	}
	return idx
}

// FromSearchIndex rebuilds a MemoryIndex from a written index so pages can
// be added to or removed from it. Every table survives a round trip through
// Snapshot; page bodies are not recoverable, only their terms.
func FromSearchIndex(src *searchindex.Index) *MemoryIndex {
	m := NewMemoryIndex()
	m.SetEnvVersion(src.EnvVersion)

	entries := make([]*docEntry, src.DocCount())
	for i := range entries {
		d, _ := src.Doc(i)
		entries[i] = &docEntry{
			docName:    d.DocName,
			filename:   d.Filename,
			title:      d.Title,
			titleTerms: make(map[string]struct{}),
			bodyTerms:  make(map[string]struct{}),
		}
	}
	at := func(doc int) *docEntry {
		if doc < 0 || doc >= len(entries) {
			return nil
		}
		return entries[doc]
	}

	for term, docs := range src.TitleTerms {
		for _, doc := range docs {
			if e := at(doc); e != nil {
				e.titleTerms[term] = struct{}{}
			}
		}
	}
	for term, docs := range src.Terms {
		for _, doc := range docs {
			if e := at(doc); e != nil {
				e.bodyTerms[term] = struct{}{}
			}
		}
	}
	for _, title := range sortedKeys(src.AllTitles) {
		for _, ref := range src.AllTitles[title] {
			if e := at(ref.Doc); e != nil {
				e.titles = append(e.titles, titleRef{title: title, anchor: ref.Anchor})
			}
		}
	}
	for _, entry := range sortedKeys(src.IndexEntries) {
		for _, ref := range src.IndexEntries[entry] {
			if e := at(ref.Doc); e != nil {
				e.entries = append(e.entries, IndexEntryDef{Entry: entry, Anchor: ref.Anchor, Main: ref.Main})
			}
		}
	}
	src.EachObject(func(prefix string, o searchindex.Object) bool {
		if e := at(o.Doc); e != nil {
			ref := src.ResolveObject(prefix, o)
			e.objects = append(e.objects, ObjectDef{
				FullName: ref.FullName,
				Type:     ref.Kind,
				Label:    ref.Label,
				Priority: ref.Priority,
				Anchor:   ref.Anchor,
			})
		}
		return true
	})

	for _, e := range entries {
		e.size = e.estimateSize()
		m.put(e)
	}
	return m
}

func objName(kind, label string) searchindex.ObjName {
	domain, role, ok := strings.Cut(kind, ":")
	if !ok {
		domain, role = "", kind
	}
	if label == "" {
		switch domain {
		case "py":
			label = "Python " + role
		case "":
			label = role
		default:
			label = domain + " " + role
		}
	}
	return searchindex.ObjName{Domain: domain, Role: role, Label: label}
}

func splitFullName(full string) (prefix, name string) {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

func compressAnchor(anchor, role, full string) string {
	switch anchor {
	case "", full:
		return ""
	case role + "-" + full:
		return "-"
	}
	return anchor
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
