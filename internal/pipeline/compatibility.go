package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resumatch/resumatch/internal/ai"
	"github.com/resumatch/resumatch/internal/prompt"
	"github.com/resumatch/resumatch/pkg/models"
)

// ScanCompatibilities runs one scan pass over compatibility records. A record
// rate-limited earlier stays invisible until its timeout predates the backoff
// window; everything else follows the same two-bucket, one-per-user shape as
// the document scan.
func (r *Runner) ScanCompatibilities(ctx context.Context) {
	eligibleBefore := time.Now().UTC().Add(-r.backoff)
	seen := make(map[uuid.UUID]bool)
	var wg sync.WaitGroup

	inProgress, err := r.store.InProgressCompatibilities(ctx, eligibleBefore)
	if err != nil {
		slog.Error("scan in-progress compatibilities", "error", err)
		return
	}
	for _, rec := range inProgress {
		if seen[rec.UserID] {
			continue
		}
		busy, err := r.store.UserBusy(ctx, rec.UserID, uuid.Nil, rec.ID)
		if err != nil {
			slog.Error("user busy check", "compatibility_id", rec.ID, "error", err)
			continue
		}
		if busy {
			continue
		}
		seen[rec.UserID] = true
		wg.Add(1)
		go func(rec *models.Compatibility) {
			defer wg.Done()
			r.processCompatibility(ctx, rec)
		}(rec)
	}

	queued, err := r.store.QueuedCompatibilities(ctx, eligibleBefore)
	if err != nil {
		slog.Error("scan queued compatibilities", "error", err)
		wg.Wait()
		return
	}
	for _, rec := range queued {
		if seen[rec.UserID] {
			continue
		}
		ok, err := r.store.ClaimCompatibility(ctx, rec.ID, rec.UserID)
		if err != nil {
			slog.Error("claim compatibility", "compatibility_id", rec.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		seen[rec.UserID] = true
		wg.Add(1)
		go func(rec *models.Compatibility) {
			defer wg.Done()
			r.processCompatibility(ctx, rec)
		}(rec)
	}

	wg.Wait()
}

// processCompatibility scores one claimed record. The record must already be
// in progress.
func (r *Runner) processCompatibility(ctx context.Context, rec *models.Compatibility) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic in processCompatibility", "compatibility_id", rec.ID, "error", p)
			r.failCompatibility(ctx, rec, "internal error")
		}
	}()

	_ = r.cache.SetWorkStatus(ctx, rec.ID, models.CompatibilityInProgress, statusTTL)

	resumeJSON, postingJSON, err := r.store.CompatibilityPayloads(ctx, rec.ID)
	if err != nil {
		slog.Error("load compatibility payloads", "compatibility_id", rec.ID, "error", err)
		r.failCompatibility(ctx, rec, err.Error())
		return
	}

	client, err := r.clientFor(ctx, rec.UserID)
	if err != nil {
		slog.Error("build model client", "compatibility_id", rec.ID, "error", err)
		r.failCompatibility(ctx, rec, err.Error())
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := client.Generate(genCtx,
		prompt.Compatibility(string(resumeJSON), string(postingJSON)),
		prompt.CompatibilitySystemMessage)
	if err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			// Not a failure. Stamp the exhaustion time so the record sits
			// out the backoff window, then gets rescanned.
			slog.Warn("model rate limited, compatibility deferred",
				"compatibility_id", rec.ID, "provider", client.Name())
			if err := r.store.DeferCompatibility(ctx, rec.ID, time.Now().UTC()); err != nil {
				slog.Error("defer compatibility", "compatibility_id", rec.ID, "error", err)
			}
			return
		}
		slog.Error("model generate", "compatibility_id", rec.ID, "provider", client.Name(), "error", err)
		r.failCompatibility(ctx, rec, err.Error())
		return
	}

	scores, err := ai.ParseCompatibilityScores(raw)
	if err != nil {
		slog.Error("parse compatibility scores", "compatibility_id", rec.ID, "error", err)
		r.failCompatibility(ctx, rec, err.Error())
		return
	}

	if err := r.store.CompleteCompatibility(ctx, rec.ID,
		*scores.ResumeCompatibility, *scores.PostingCompatibility); err != nil {
		slog.Error("complete compatibility", "compatibility_id", rec.ID, "error", err)
		return
	}
	_ = r.cache.SetWorkStatus(ctx, rec.ID, models.CompatibilityCompleted, statusTTL)

	slog.Info("compatibility scored",
		"compatibility_id", rec.ID,
		"resume_score", *scores.ResumeCompatibility,
		"posting_score", *scores.PostingCompatibility)
}

func (r *Runner) failCompatibility(ctx context.Context, rec *models.Compatibility, message string) {
	if err := r.store.FailCompatibility(ctx, rec.ID, message); err != nil {
		slog.Error("mark compatibility failed", "compatibility_id", rec.ID, "error", err)
	}
	_ = r.cache.SetWorkStatus(ctx, rec.ID, models.CompatibilityIsError, statusTTL)
}
