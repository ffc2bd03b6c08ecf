package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/api/response"
	"github.com/resumatch/resumatch/internal/cache"
	"github.com/resumatch/resumatch/internal/extract"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
)

const maxUploadBytes = 32 << 20

// NewUploadDocumentHandler returns the handler for POST /api/v1/documents.
// The upload is accepted immediately; extraction happens on the next scan.
func NewUploadDocumentHandler(st store.Store, uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart body", nil)
			return
		}

		kind := r.FormValue("kind")
		if kind != models.KindResume && kind != models.KindJobPosting {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"kind must be resume or job_posting", nil)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !extract.SupportedExt(ext) {
			response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT",
				"Unsupported document format "+ext, nil)
			return
		}

		id := uuid.New()
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store upload", nil)
			return
		}
		path := filepath.Join(uploadDir, id.String()+ext)
		dst, err := os.Create(path)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store upload", nil)
			return
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			os.Remove(path)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store upload", nil)
			return
		}
		dst.Close()

		now := time.Now().UTC()
		doc := &models.WorkDocument{
			ID:        id,
			UserID:    userID,
			Kind:      kind,
			FilePath:  path,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := st.CreateWorkDocument(r.Context(), doc); err != nil {
			os.Remove(path)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to queue document", nil)
			return
		}

		response.Accepted(w, doc)
	}
}

// NewListDocumentsHandler returns the handler for GET /api/v1/documents.
// An optional kind query parameter filters the list.
func NewListDocumentsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		kind := r.URL.Query().Get("kind")
		if kind != "" && kind != models.KindResume && kind != models.KindJobPosting {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"kind must be resume or job_posting", nil)
			return
		}

		docs, err := st.ListWorkDocuments(r.Context(), userID, kind)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list documents", nil)
			return
		}
		if docs == nil {
			docs = []*models.WorkDocument{}
		}
		response.List(w, docs, len(docs))
	}
}

type documentResponse struct {
	*models.WorkDocument
	Status string `json:"status,omitempty"`
}

// NewGetDocumentHandler returns the handler for GET /api/v1/documents/{documentID}.
// The live processing status from the cache is attached when present.
func NewGetDocumentHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "documentID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid document id", nil)
			return
		}

		doc, err := st.GetWorkDocument(r.Context(), id, userID)
		if err != nil {
			notFoundOr(w, err, "Document")
			return
		}

		resp := documentResponse{WorkDocument: doc}
		if status, ok, err := ca.GetWorkStatus(r.Context(), id); err == nil && ok {
			resp.Status = status
		}
		response.JSON(w, resp)
	}
}

// NewRetryDocumentHandler returns the handler for POST /api/v1/documents/{documentID}/retry.
// Only failed documents can be requeued.
func NewRetryDocumentHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "documentID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid document id", nil)
			return
		}

		doc, err := st.GetWorkDocument(r.Context(), id, userID)
		if err != nil {
			notFoundOr(w, err, "Document")
			return
		}
		if !doc.IsError {
			response.Error(w, http.StatusConflict, "CONFLICT", "Document is not in a failed state", nil)
			return
		}

		if err := st.RetryWorkDocument(r.Context(), id, userID); err != nil {
			notFoundOr(w, err, "Document")
			return
		}
		response.Accepted(w, map[string]string{"id": id.String(), "state": "queued"})
	}
}
