package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type fakeService struct {
	upserted  []index.Document
	deleted   []string
	unchanged bool
	err       error
}

func (f *fakeService) Upsert(_ context.Context, project string, doc index.Document) (*ingestion.IngestResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserted = append(f.upserted, doc)
	return &ingestion.IngestResponse{Project: project, DocName: doc.DocName, Status: ingestion.StatusPending, Unchanged: f.unchanged}, nil
}

func (f *fakeService) Delete(_ context.Context, project, docName string) (*ingestion.IngestResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, docName)
	return &ingestion.IngestResponse{Project: project, DocName: docName, Status: ingestion.StatusDeleted}, nil
}

func serve(t *testing.T, svc DocumentService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	New(svc).Register(mux)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUpsertAccepted(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPut, "/api/v1/projects/qnetvo/documents",
		`{"docname":" optimization ","title":"Optimization","body":"gradient descent"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, svc.upserted, 1)
	assert.Equal(t, "optimization", svc.upserted[0].DocName)
	assert.Equal(t, "optimization.rst", svc.upserted[0].Filename)

	var resp ingestion.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "qnetvo", resp.Project)
	assert.Equal(t, ingestion.StatusPending, resp.Status)
}

func TestUpsertUnchangedReturnsOK(t *testing.T) {
	rec := serve(t, &fakeService{unchanged: true}, http.MethodPut, "/api/v1/projects/qnetvo/documents",
		`{"docname":"index","title":"qNetVO"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpsertValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		field  string
	}{
		{"bad project", "/api/v1/projects/-bad/documents", `{"docname":"a","title":"A"}`, "project"},
		{"missing title", "/api/v1/projects/qnetvo/documents", `{"docname":"a"}`, "title"},
		{"dot segment", "/api/v1/projects/qnetvo/documents", `{"docname":"../a","title":"A"}`, "docname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeService{}, http.MethodPut, tt.target, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp struct {
				Fields map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
}

func TestUpsertInvalidJSON(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPut, "/api/v1/projects/qnetvo/documents", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertServiceFailure(t *testing.T) {
	rec := serve(t, &fakeService{err: errors.New("db down")}, http.MethodPut,
		"/api/v1/projects/qnetvo/documents", `{"docname":"a","title":"A"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"ingestion failed"}`, rec.Body.String())
}

func TestDeleteNestedDocName(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodDelete, "/api/v1/projects/qnetvo/documents/api/network_ansatzes", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"api/network_ansatzes"}, svc.deleted)
}

func TestDeleteNotFound(t *testing.T) {
	svc := &fakeService{err: apperrors.New(apperrors.ErrDocumentNotFound, "qnetvo/missing")}
	rec := serve(t, svc, http.MethodDelete, "/api/v1/projects/qnetvo/documents/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
