package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindResume     = "resume"
	KindJobPosting = "job_posting"
)

// WorkDocument is an uploaded file awaiting structured extraction. It is
// created by the upload endpoint, claimed by the scanner, and either deleted
// on successful materialization or left behind with is_error set for manual
// retry.
type WorkDocument struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	UserID     uuid.UUID `db:"user_id"     json:"user_id"`
	Kind       string    `db:"kind"        json:"kind"`
	FilePath   string    `db:"file_path"   json:"file_path"`
	InProgress bool      `db:"in_progress" json:"in_progress"`
	IsError    bool      `db:"is_error"    json:"is_error"`
	Error      *string   `db:"error"       json:"error,omitempty"`
	// ResourceTimeout is set when the model backend rate-limited the
	// extraction; the document stays in progress but is not rescanned until
	// the backoff window elapses.
	ResourceTimeout *time.Time `db:"resource_timeout" json:"resource_timeout,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}
