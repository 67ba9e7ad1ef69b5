package index

// Document is one page of a documentation project as the index builder
// receives it.
type Document struct {
	DocName      string          `json:"docname"`
	Filename     string          `json:"filename,omitempty"`
	Title        string          `json:"title"`
	Body         string          `json:"body,omitempty"`
	Sections     []Section       `json:"sections,omitempty"`
	Objects      []ObjectDef     `json:"objects,omitempty"`
	IndexEntries []IndexEntryDef `json:"indexEntries,omitempty"`
}

// Section is a titled part of a page. Its words are indexed as title terms.
type Section struct {
	Title  string `json:"title"`
	Anchor string `json:"anchor,omitempty"`
}

// ObjectDef is an API symbol documented on the page.
type ObjectDef struct {
	FullName string `json:"fullName"`
	// Type is "<domain>:<role>", e.g. "py:function".
	Type string `json:"type"`
	// Label defaults to "<domain> <role>".
	Label string `json:"label,omitempty"`
	// Priority 0 is important, 1 default, 2 unimportant; negative values
	// keep the object out of the index.
	Priority int `json:"priority"`
	// Anchor defaults to the full name.
	Anchor string `json:"anchor,omitempty"`
}

// IndexEntryDef is an explicit index directive entry.
type IndexEntryDef struct {
	Entry  string `json:"entry"`
	Anchor string `json:"anchor"`
	Main   bool   `json:"main,omitempty"`
}
