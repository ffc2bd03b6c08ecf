package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CompatibilityInQueue    = "in_queue"
	CompatibilityInProgress = "in_progress"
	CompatibilityCompleted  = "completed"
	CompatibilityIsError    = "is_error"
)

// Compatibility ties one resume to one job posting and carries the
// bidirectional score. At most one row exists per (resume, posting) pair.
//
// ResourceTimeout is set when the model backend reported exhaustion while
// the record was in progress; the record stays in_progress and becomes
// eligible for re-scan only after the backoff window has elapsed.
type Compatibility struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	UserID          uuid.UUID  `db:"user_id"          json:"user_id"`
	ResumeID        uuid.UUID  `db:"resume_id"        json:"resume_id"`
	PostingID       uuid.UUID  `db:"posting_id"       json:"posting_id"`
	Status          string     `db:"status"           json:"status"`
	ResumeScore     *float64   `db:"resume_score"     json:"resume_score"`
	PostingScore    *float64   `db:"posting_score"    json:"posting_score"`
	Error           *string    `db:"error"            json:"error,omitempty"`
	ResourceTimeout *time.Time `db:"resource_timeout" json:"resource_timeout,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// CompatibilityScores mirrors the JSON object the model is instructed to
// emit for a comparison. Key names match the prompt schema.
type CompatibilityScores struct {
	ResumeCompatibility  *float64 `json:"resume_compatibility"`
	PostingCompatibility *float64 `json:"job_compatibility"`
}
