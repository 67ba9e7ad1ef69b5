// Package validator checks documents submitted for indexing and returns
// per-field messages.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/project"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	maxDocNameLength = 512
	maxTitleLength   = 1024
	maxBodyLength    = 1 << 20
	maxSections      = 1000
	maxObjects       = 5000
)

var objTypePattern = regexp.MustCompile(`^[a-z][a-z0-9]*:[a-z][a-z0-9_-]*$`)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrInvalidInput }

// ValidateProject checks a project name from the URL.
func ValidateProject(name string) error {
	if !project.ValidName(name) {
		return &ValidationError{Fields: map[string]string{"project": "must be 1-64 letters, digits, '.', '_' or '-' and start alphanumeric"}}
	}
	return nil
}

// ValidateDocName checks a docname: a relative slash-separated path without
// empty or dot segments.
func ValidateDocName(docName string) error {
	if msg := docNameProblem(docName); msg != "" {
		return &ValidationError{Fields: map[string]string{"docname": msg}}
	}
	return nil
}

func docNameProblem(docName string) string {
	switch {
	case docName == "":
		return "docname is required"
	case len(docName) > maxDocNameLength:
		return fmt.Sprintf("docname must be at most %d characters", maxDocNameLength)
	case strings.ContainsAny(docName, "\\\x00?#"):
		return "docname contains an invalid character"
	}
	for _, seg := range strings.Split(docName, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "docname must be a relative path without empty or dot segments"
		}
	}
	return ""
}

// Normalize trims text fields and fills defaults: the filename falls back to
// "<docname>.rst".
func Normalize(doc *index.Document) {
	doc.DocName = strings.TrimSpace(doc.DocName)
	doc.Title = strings.TrimSpace(doc.Title)
	doc.Filename = strings.TrimSpace(doc.Filename)
	if doc.Filename == "" && doc.DocName != "" {
		doc.Filename = doc.DocName + ".rst"
	}
	for i := range doc.Sections {
		doc.Sections[i].Title = strings.TrimSpace(doc.Sections[i].Title)
	}
	for i := range doc.Objects {
		doc.Objects[i].FullName = strings.TrimSpace(doc.Objects[i].FullName)
	}
}

// ValidateDocument checks a normalized document.
func ValidateDocument(doc *index.Document) error {
	errs := make(map[string]string)

	if msg := docNameProblem(doc.DocName); msg != "" {
		errs["docname"] = msg
	}
	if doc.Title == "" {
		errs["title"] = "title is required"
	} else if len(doc.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(doc.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyLength)
	}

	if len(doc.Sections) > maxSections {
		errs["sections"] = fmt.Sprintf("at most %d sections", maxSections)
	}
	for i, s := range doc.Sections {
		if s.Title == "" {
			errs[fmt.Sprintf("sections[%d].title", i)] = "section title is required"
		}
	}

	if len(doc.Objects) > maxObjects {
		errs["objects"] = fmt.Sprintf("at most %d objects", maxObjects)
	}
	for i, o := range doc.Objects {
		field := fmt.Sprintf("objects[%d]", i)
		switch {
		case o.FullName == "":
			errs[field+".fullName"] = "full name is required"
		case strings.HasPrefix(o.FullName, ".") || strings.HasSuffix(o.FullName, "."):
			errs[field+".fullName"] = "full name must not start or end with '.'"
		}
		if !objTypePattern.MatchString(o.Type) {
			errs[field+".type"] = `type must look like "py:function"`
		}
		if o.Priority < -1 || o.Priority > 2 {
			errs[field+".priority"] = "priority must be between -1 and 2"
		}
	}

	for i, e := range doc.IndexEntries {
		if strings.TrimSpace(e.Entry) == "" {
			errs[fmt.Sprintf("indexEntries[%d].entry", i)] = "entry is required"
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
