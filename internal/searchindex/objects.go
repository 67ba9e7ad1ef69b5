package searchindex

import (
	"sort"
	"strings"
)

// ObjectRef is an Object resolved against the index tables.
type ObjectRef struct {
	Prefix   string `json:"prefix"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Priority int    `json:"priority"`
	Doc      int    `json:"doc"`
	DocName  string `json:"docname"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Anchor   string `json:"anchor"`
}

func (idx *Index) DocCount() int { return len(idx.DocNames) }

func (idx *Index) ObjectCount() int {
	n := 0
	for _, objs := range idx.Objects {
		n += len(objs)
	}
	return n
}

// Doc returns document i.
func (idx *Index) Doc(i int) (Document, bool) {
	if i < 0 || i >= len(idx.DocNames) {
		return Document{}, false
	}
	d := Document{ID: i, DocName: idx.DocNames[i]}
	if i < len(idx.Filenames) {
		d.Filename = idx.Filenames[i]
	}
	if i < len(idx.Titles) {
		d.Title = idx.Titles[i]
	}
	return d, true
}

// Documents returns the document table in id order.
func (idx *Index) Documents() []Document {
	docs := make([]Document, 0, len(idx.DocNames))
	for i := range idx.DocNames {
		d, _ := idx.Doc(i)
		docs = append(docs, d)
	}
	return docs
}

// FindDoc returns the id of docname. Generated indexes keep docnames
// sorted, so a binary search is tried before a scan.
func (idx *Index) FindDoc(docname string) (int, bool) {
	if i := sort.SearchStrings(idx.DocNames, docname); i < len(idx.DocNames) && idx.DocNames[i] == docname {
		return i, true
	}
	for i, name := range idx.DocNames {
		if name == docname {
			return i, true
		}
	}
	return -1, false
}

// FullName joins an object's prefix and name.
func FullName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// ResolveObject expands o, filed under prefix, into its full name, anchor,
// kind and owning document.
func (idx *Index) ResolveObject(prefix string, o Object) ObjectRef {
	full := FullName(prefix, o.Name)
	names := idx.ObjNames[o.Type]
	anchor := o.Anchor
	switch anchor {
	case "":
		anchor = full
	case "-":
		anchor = names.Role + "-" + full
	}
	ref := ObjectRef{
		Prefix:   prefix,
		Name:     o.Name,
		FullName: full,
		Kind:     idx.ObjTypes[o.Type],
		Label:    names.Label,
		Priority: o.Priority,
		Doc:      o.Doc,
		Anchor:   anchor,
	}
	if d, ok := idx.Doc(o.Doc); ok {
		ref.DocName, ref.Title, ref.Filename = d.DocName, d.Title, d.Filename
	}
	return ref
}

// EachObject calls fn for every object in prefix order, stopping early when
// fn returns false.
func (idx *Index) EachObject(fn func(prefix string, o Object) bool) {
	for _, prefix := range sortedKeys(idx.Objects) {
		for _, o := range idx.Objects[prefix] {
			if !fn(prefix, o) {
				return
			}
		}
	}
}

// ObjectsByName resolves a fully qualified symbol. Exact matches win; when
// there are none the comparison is repeated ignoring case. A bare name
// without a prefix also matches objects whose last dotted part equals it.
func (idx *Index) ObjectsByName(fullname string) []ObjectRef {
	fullname = strings.TrimSpace(fullname)
	if fullname == "" {
		return nil
	}
	match := func(eq func(a, b string) bool) []ObjectRef {
		var refs []ObjectRef
		idx.EachObject(func(prefix string, o Object) bool {
			if eq(FullName(prefix, o.Name), fullname) || (!strings.Contains(fullname, ".") && eq(lastPart(o.Name), fullname)) {
				refs = append(refs, idx.ResolveObject(prefix, o))
			}
			return true
		})
		return refs
	}
	if refs := match(func(a, b string) bool { return a == b }); len(refs) > 0 {
		return refs
	}
	return match(strings.EqualFold)
}

func lastPart(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
