package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/api/response"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyPrefix    = "rm_"
	apiKeyRandBytes = 20
	keyPrefixLen    = 8
)

// GenerateAPIKey builds a new API key for the user. The raw key is returned
// once and never stored; only its bcrypt hash persists.
func GenerateAPIKey(userID uuid.UUID, name string) (*models.APIKey, string, error) {
	buf := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", err
	}
	raw := apiKeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:keyPrefixLen],
		CreatedAt: time.Now().UTC(),
	}
	return key, raw, nil
}

// NewCreateAPIKeyHandler returns the handler for POST /api/v1/keys.
func NewCreateAPIKeyHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}

		key, raw, err := GenerateAPIKey(userID, req.Name)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate key", nil)
			return
		}
		if err := st.CreateAPIKey(r.Context(), key); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store key", nil)
			return
		}

		response.Created(w, map[string]string{
			"id":         key.ID.String(),
			"name":       key.Name,
			"key":        raw,
			"key_prefix": key.KeyPrefix,
		})
	}
}
