package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/api/response"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
)

// NewCreateCompatibilityHandler returns the handler for POST /api/v1/compatibilities.
// The referenced resume and posting must belong to the caller; the pair must
// not already have a record.
func NewCreateCompatibilityHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			ResumeID  uuid.UUID `json:"resume_id"`
			PostingID uuid.UUID `json:"posting_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ResumeID == uuid.Nil || req.PostingID == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"resume_id and posting_id are required", nil)
			return
		}

		if _, err := st.GetResume(r.Context(), req.ResumeID, userID); err != nil {
			notFoundOr(w, err, "Resume")
			return
		}

		now := time.Now().UTC()
		rec := &models.Compatibility{
			ID:        uuid.New(),
			UserID:    userID,
			ResumeID:  req.ResumeID,
			PostingID: req.PostingID,
			Status:    models.CompatibilityInQueue,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := st.CreateCompatibility(r.Context(), rec); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "CONFLICT",
					"A record for this pair already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create record", nil)
			return
		}
		response.Created(w, rec)
	}
}

// NewScanCompatibilitiesHandler returns the handler for
// POST /api/v1/compatibilities/scan. It queues a record for every
// (resume, posting) pair of the caller that has none yet.
func NewScanCompatibilitiesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		queued, err := st.CreateMissingCompatibilities(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to queue records", nil)
			return
		}
		response.Accepted(w, map[string]int{"queued": queued})
	}
}

// NewListCompatibilitiesHandler returns the handler for GET /api/v1/compatibilities.
func NewListCompatibilitiesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		recs, err := st.ListCompatibilities(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list records", nil)
			return
		}
		if recs == nil {
			recs = []*models.Compatibility{}
		}
		response.List(w, recs, len(recs))
	}
}

// NewGetCompatibilityHandler returns the handler for GET /api/v1/compatibilities/{compatibilityID}.
func NewGetCompatibilityHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "compatibilityID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid compatibility id", nil)
			return
		}

		rec, err := st.GetCompatibility(r.Context(), id, userID)
		if err != nil {
			notFoundOr(w, err, "Compatibility")
			return
		}
		response.JSON(w, rec)
	}
}

// NewRequeueCompatibilityHandler returns the handler for
// POST /api/v1/compatibilities/{compatibilityID}/requeue. A record that is
// currently being scored cannot be requeued.
func NewRequeueCompatibilityHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "compatibilityID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid compatibility id", nil)
			return
		}

		rec, err := st.GetCompatibility(r.Context(), id, userID)
		if err != nil {
			notFoundOr(w, err, "Compatibility")
			return
		}
		if rec.Status == models.CompatibilityInProgress {
			response.Error(w, http.StatusConflict, "CONFLICT", "Record is currently being scored", nil)
			return
		}

		if err := st.RequeueCompatibility(r.Context(), id, userID); err != nil {
			notFoundOr(w, err, "Compatibility")
			return
		}
		response.Accepted(w, map[string]string{"id": id.String(), "status": models.CompatibilityInQueue})
	}
}
