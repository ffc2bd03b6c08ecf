package handler

import (
	"net/http"

	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/api/response"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
)

// NewListJobPostingsHandler returns the handler for GET /api/v1/postings.
func NewListJobPostingsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		postings, err := st.ListJobPostings(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list job postings", nil)
			return
		}
		if postings == nil {
			postings = []*models.JobPosting{}
		}
		response.List(w, postings, len(postings))
	}
}
