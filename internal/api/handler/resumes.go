package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/api/response"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
)

// NewListResumesHandler returns the handler for GET /api/v1/resumes.
func NewListResumesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		resumes, err := st.ListResumes(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list resumes", nil)
			return
		}
		if resumes == nil {
			resumes = []*models.Resume{}
		}
		response.List(w, resumes, len(resumes))
	}
}

// NewGetResumeHandler returns the handler for GET /api/v1/resumes/{resumeID}.
// Experiences and educations are included.
func NewGetResumeHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "resumeID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid resume id", nil)
			return
		}

		resume, err := st.GetResume(r.Context(), id, userID)
		if err != nil {
			notFoundOr(w, err, "Resume")
			return
		}
		response.JSON(w, resume)
	}
}
