// Package handler contains the HTTP handlers. Each constructor takes only
// the dependencies that handler uses.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/resumatch/resumatch/internal/api/response"
	"github.com/resumatch/resumatch/internal/cache"
	"github.com/resumatch/resumatch/internal/store"
)

// NewHealthHandler returns the handler for GET /api/v1/health. Either
// dependency being down turns the overall status degraded with a 503.
func NewHealthHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus, redisStatus := "ok", "ok"
		if err := st.Ping(r.Context()); err != nil {
			dbStatus = "unavailable"
		}
		if err := ca.Ping(r.Context()); err != nil {
			redisStatus = "unavailable"
		}

		status := "ok"
		code := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":   status,
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}

// notFoundOr maps store.ErrNotFound to a 404 and everything else to a 500.
func notFoundOr(w http.ResponseWriter, err error, resource string) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", resource+" not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
