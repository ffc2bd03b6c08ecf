package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/resumatch/resumatch/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetDefaultUser(ctx context.Context) (*models.User, error)
	GetModelSettings(ctx context.Context, userID uuid.UUID) (*models.ModelSettings, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	CountAPIKeys(ctx context.Context) (int, error)

	CreateWorkDocument(ctx context.Context, doc *models.WorkDocument) error
	GetWorkDocument(ctx context.Context, id, userID uuid.UUID) (*models.WorkDocument, error)
	ListWorkDocuments(ctx context.Context, userID uuid.UUID, kind string) ([]*models.WorkDocument, error)
	QueuedWorkDocuments(ctx context.Context, kind string) ([]*models.WorkDocument, error)
	InProgressWorkDocuments(ctx context.Context, kind string, eligibleBefore time.Time) ([]*models.WorkDocument, error)
	ClaimWorkDocument(ctx context.Context, id, userID uuid.UUID) (bool, error)
	FailWorkDocument(ctx context.Context, id uuid.UUID, message string) error
	DeferWorkDocument(ctx context.Context, id uuid.UUID, at time.Time) error
	RetryWorkDocument(ctx context.Context, id, userID uuid.UUID) error

	// UserBusy reports whether the user owns any in-progress work besides
	// the excluded rows. Pass uuid.Nil to exclude nothing.
	UserBusy(ctx context.Context, userID, excludeDoc, excludeCompat uuid.UUID) (bool, error)

	MaterializeResume(ctx context.Context, doc *models.WorkDocument, ex *models.ResumeExtraction, payload json.RawMessage) (*models.Resume, error)
	MaterializeJobPosting(ctx context.Context, doc *models.WorkDocument, ex *models.JobPostingExtraction, payload json.RawMessage) (*models.JobPosting, error)

	ListResumes(ctx context.Context, userID uuid.UUID) ([]*models.Resume, error)
	GetResume(ctx context.Context, id, userID uuid.UUID) (*models.Resume, error)
	ListJobPostings(ctx context.Context, userID uuid.UUID) ([]*models.JobPosting, error)

	CreateCompatibility(ctx context.Context, c *models.Compatibility) error
	CreateMissingCompatibilities(ctx context.Context, userID uuid.UUID) (int, error)
	ListCompatibilities(ctx context.Context, userID uuid.UUID) ([]*models.Compatibility, error)
	GetCompatibility(ctx context.Context, id, userID uuid.UUID) (*models.Compatibility, error)
	QueuedCompatibilities(ctx context.Context, eligibleBefore time.Time) ([]*models.Compatibility, error)
	InProgressCompatibilities(ctx context.Context, eligibleBefore time.Time) ([]*models.Compatibility, error)
	ClaimCompatibility(ctx context.Context, id, userID uuid.UUID) (bool, error)
	CompleteCompatibility(ctx context.Context, id uuid.UUID, resumeScore, postingScore float64) error
	DeferCompatibility(ctx context.Context, id uuid.UUID, at time.Time) error
	FailCompatibility(ctx context.Context, id uuid.UUID, message string) error
	RequeueCompatibility(ctx context.Context, id, userID uuid.UUID) error
	CompatibilityPayloads(ctx context.Context, id uuid.UUID) (resume, posting json.RawMessage, err error)
}
