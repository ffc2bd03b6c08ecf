// Package pipeline drives background processing: it scans for eligible work,
// claims it under the per-user exclusion rule, and runs extraction and
// scoring against the configured model backend.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/resumatch/resumatch/internal/cache"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
)

const statusTTL = 30 * time.Minute

// ClientFactory builds a model client from per-user settings.
type ClientFactory interface {
	ClientFor(ctx context.Context, settings *models.ModelSettings) (models.ModelClient, error)
}

// TextExtractor reads a document file and returns its plain text.
type TextExtractor interface {
	Text(path string) (string, error)
}

// Runner owns one pass of the work loop. It is driven by the scheduler but
// carries no timing logic itself, which keeps every scan testable.
type Runner struct {
	store     store.Store
	cache     cache.Cache
	factory   ClientFactory
	extractor TextExtractor

	// timeout bounds a single model call; backoff is how long a
	// rate-limited work item stays ineligible.
	timeout time.Duration
	backoff time.Duration
}

func NewRunner(st store.Store, ca cache.Cache, factory ClientFactory, extractor TextExtractor, timeout, backoff time.Duration) *Runner {
	return &Runner{
		store:     st,
		cache:     ca,
		factory:   factory,
		extractor: extractor,
		timeout:   timeout,
		backoff:   backoff,
	}
}

// clientFor loads the user's current model settings and builds a client.
// Settings are read per work item so changes apply without a restart.
func (r *Runner) clientFor(ctx context.Context, userID uuid.UUID) (models.ModelClient, error) {
	settings, err := r.store.GetModelSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.factory.ClientFor(ctx, settings)
}
