// Package searchindex reads and writes the search index a Sphinx HTML build
// emits as searchindex.js: the document tables, the stemmed term postings
// and the cross-reference object table.
package searchindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Index is the decoded searchindex.js. Field order matches the order the
// generator writes the keys in.
type Index struct {
	DocNames     []string              `json:"docnames"`
	Filenames    []string              `json:"filenames"`
	Titles       []string              `json:"titles"`
	Terms        map[string]Postings   `json:"terms"`
	Objects      ObjectTable           `json:"objects"`
	ObjTypes     map[int]string        `json:"objtypes"`
	ObjNames     map[int]ObjName       `json:"objnames"`
	TitleTerms   map[string]Postings   `json:"titleterms"`
	EnvVersion   map[string]int        `json:"envversion"`
	AllTitles    map[string][]TitleRef `json:"alltitles"`
	IndexEntries map[string][]EntryRef `json:"indexentries"`
}

// Document is one row of the parallel document arrays.
type Document struct {
	ID       int    `json:"id"`
	DocName  string `json:"docname"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// Postings lists the document ids containing a term, ascending. A single
// document is serialized as a bare integer.
type Postings []int

func (p Postings) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(p[0])
	}
	return json.Marshal([]int(p))
}

func (p *Postings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var ids []int
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("postings: %w", err)
		}
		*p = ids
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("postings: %w", err)
	}
	*p = Postings{id}
	return nil
}

// Contains reports whether doc is in p. p must be sorted.
func (p Postings) Contains(doc int) bool {
	i := sort.SearchInts(p, doc)
	return i < len(p) && p[i] == doc
}

// Object is one cross-reference target, serialized as
// [doc, objtype, priority, anchor, name]. Name is relative to the prefix it
// is filed under. Anchor "" means the full name, "-" means
// "<objtype role>-<full name>".
type Object struct {
	Doc      int
	Type     int
	Priority int
	Anchor   string
	Name     string
}

func (o Object) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.Doc, o.Type, o.Priority, o.Anchor, o.Name})
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("object: %w", err)
	}
	if len(raw) != 5 {
		return fmt.Errorf("object: want 5 fields, got %d", len(raw))
	}
	return decodeFields(raw, &o.Doc, &o.Type, &o.Priority, &o.Anchor, &o.Name)
}

// ObjectTable files objects under the dotted prefix of their full name.
type ObjectTable map[string][]Object

// UnmarshalJSON accepts both the current list layout and the older
// prefix -> {name: [doc, objtype, priority, anchor]} layout.
func (t *ObjectTable) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("objects: %w", err)
	}
	table := make(ObjectTable, len(raw))
	for prefix, body := range raw {
		body = bytes.TrimSpace(body)
		if len(body) > 0 && body[0] == '{' {
			objs, err := decodeLegacyObjects(body)
			if err != nil {
				return fmt.Errorf("objects[%q]: %w", prefix, err)
			}
			table[prefix] = objs
			continue
		}
		var objs []Object
		if err := json.Unmarshal(body, &objs); err != nil {
			return fmt.Errorf("objects[%q]: %w", prefix, err)
		}
		table[prefix] = objs
	}
	*t = table
	return nil
}

func decodeLegacyObjects(body []byte) ([]Object, error) {
	var byName map[string][]json.RawMessage
	if err := json.Unmarshal(body, &byName); err != nil {
		return nil, err
	}
	objs := make([]Object, 0, len(byName))
	for name, raw := range byName {
		if len(raw) != 4 {
			return nil, fmt.Errorf("%s: want 4 fields, got %d", name, len(raw))
		}
		o := Object{Name: name}
		if err := decodeFields(raw, &o.Doc, &o.Type, &o.Priority, &o.Anchor); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		objs = append(objs, o)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Name < objs[j].Name })
	return objs, nil
}

// ObjName is [domain, role, localized label], e.g. ["py", "class",
// "Python class"].
type ObjName struct {
	Domain string
	Role   string
	Label  string
}

func (n ObjName) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{n.Domain, n.Role, n.Label})
}

func (n *ObjName) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("objname: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("objname: want 3 fields, got %d", len(parts))
	}
	n.Domain, n.Role, n.Label = parts[0], parts[1], parts[2]
	return nil
}

// TitleRef locates a document or section title. An empty Anchor is the
// document itself and is serialized as null.
type TitleRef struct {
	Doc    int
	Anchor string
}

func (r TitleRef) MarshalJSON() ([]byte, error) {
	if r.Anchor == "" {
		return json.Marshal([]any{r.Doc, nil})
	}
	return json.Marshal([]any{r.Doc, r.Anchor})
}

func (r *TitleRef) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("title ref: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("title ref: want 2 fields, got %d", len(raw))
	}
	var anchor *string
	if err := decodeFields(raw, &r.Doc, &anchor); err != nil {
		return fmt.Errorf("title ref: %w", err)
	}
	r.Anchor = ""
	if anchor != nil {
		r.Anchor = *anchor
	}
	return nil
}

// EntryRef locates an explicit index entry. Older generators write
// [doc, anchor] and every such entry counts as main; newer ones append the
// main flag.
type EntryRef struct {
	Doc    int
	Anchor string
	Main   bool

	short bool
}

func (r EntryRef) MarshalJSON() ([]byte, error) {
	if r.short {
		return json.Marshal([]any{r.Doc, r.Anchor})
	}
	return json.Marshal([]any{r.Doc, r.Anchor, r.Main})
}

func (r *EntryRef) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("index entry: %w", err)
	}
	switch len(raw) {
	case 2:
		*r = EntryRef{Main: true, short: true}
		return decodeFields(raw, &r.Doc, &r.Anchor)
	case 3:
		*r = EntryRef{}
		return decodeFields(raw, &r.Doc, &r.Anchor, &r.Main)
	default:
		return fmt.Errorf("index entry: want 2 or 3 fields, got %d", len(raw))
	}
}

func decodeFields(raw []json.RawMessage, dst ...any) error {
	for i, d := range dst {
		if err := json.Unmarshal(raw[i], d); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	return nil
}
