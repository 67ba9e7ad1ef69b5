package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const maxRequestBytes = 2 << 20

// DocumentService is satisfied by *publisher.Publisher.
type DocumentService interface {
	Upsert(ctx context.Context, project string, doc index.Document) (*ingestion.IngestResponse, error)
	Delete(ctx context.Context, project, docName string) (*ingestion.IngestResponse, error)
}

type Handler struct {
	service DocumentService
	logger  *slog.Logger
}

func New(service DocumentService) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/v1/projects/{project}/documents", h.Upsert)
	mux.HandleFunc("DELETE /api/v1/projects/{project}/documents/{docname...}", h.Delete)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	project := r.PathValue("project")
	if err := validator.ValidateProject(project); err != nil {
		h.writeValidation(w, err)
		return
	}

	var doc index.Document
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	validator.Normalize(&doc)
	if err := validator.ValidateDocument(&doc); err != nil {
		h.writeValidation(w, err)
		return
	}

	resp, err := h.service.Upsert(ctx, project, doc)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"project", project,
			"docname", doc.DocName,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("document accepted",
		"project", project,
		"docname", doc.DocName,
		"unchanged", resp.Unchanged,
	)
	status := http.StatusAccepted
	if resp.Unchanged {
		status = http.StatusOK
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	project := r.PathValue("project")
	docName := r.PathValue("docname")
	if err := validator.ValidateProject(project); err != nil {
		h.writeValidation(w, err)
		return
	}
	if err := validator.ValidateDocName(docName); err != nil {
		h.writeValidation(w, err)
		return
	}

	resp, err := h.service.Delete(ctx, project, docName)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode >= http.StatusInternalServerError {
			logger.FromContext(ctx).Error("delete failed", "project", project, "docname", docName, "error", err)
			h.writeError(w, statusCode, "delete failed")
			return
		}
		h.writeError(w, statusCode, err.Error())
		return
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
