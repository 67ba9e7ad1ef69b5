package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func validDoc() index.Document {
	return index.Document{
		DocName:  "quantum_networks/network_ansatzes",
		Title:    "Network Ansatzes",
		Body:     "A network ansatz composes layers.",
		Sections: []index.Section{{Title: "Network Ansatzes", Anchor: "network-ansatzes"}},
		Objects:  []index.ObjectDef{{FullName: "qnetvo.NetworkAnsatz", Type: "py:class", Priority: 1}},
	}
}

func TestValidateDocumentAcceptsValid(t *testing.T) {
	doc := validDoc()
	Normalize(&doc)
	require.NoError(t, ValidateDocument(&doc))
	assert.Equal(t, "quantum_networks/network_ansatzes.rst", doc.Filename)
}

func TestValidateDocumentFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*index.Document)
		field  string
	}{
		{"missing docname", func(d *index.Document) { d.DocName = "" }, "docname"},
		{"dot segment", func(d *index.Document) { d.DocName = "a/../b" }, "docname"},
		{"absolute", func(d *index.Document) { d.DocName = "/etc/passwd" }, "docname"},
		{"missing title", func(d *index.Document) { d.Title = "" }, "title"},
		{"huge body", func(d *index.Document) { d.Body = strings.Repeat("x", maxBodyLength+1) }, "body"},
		{"empty section", func(d *index.Document) { d.Sections[0].Title = "" }, "sections[0].title"},
		{"bad objtype", func(d *index.Document) { d.Objects[0].Type = "function" }, "objects[0].type"},
		{"bad priority", func(d *index.Document) { d.Objects[0].Priority = 7 }, "objects[0].priority"},
		{"bad full name", func(d *index.Document) { d.Objects[0].FullName = "qnetvo." }, "objects[0].fullName"},
		{"empty entry", func(d *index.Document) { d.IndexEntries = []index.IndexEntryDef{{Entry: " "}} }, "indexEntries[0].entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(&doc)
			err := ValidateDocument(&doc)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Contains(t, ve.Fields, tt.field)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestValidateProjectAndDocName(t *testing.T) {
	assert.NoError(t, ValidateProject("qnetvo"))
	assert.Error(t, ValidateProject("../x"))
	assert.NoError(t, ValidateDocName("cost/index"))
	assert.Error(t, ValidateDocName("cost//index"))
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "required", "docname": "required"}}
	assert.Equal(t, "docname: required; title: required", err.Error())
}
