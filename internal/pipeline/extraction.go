package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resumatch/resumatch/internal/ai"
	"github.com/resumatch/resumatch/internal/cache"
	"github.com/resumatch/resumatch/internal/prompt"
	"github.com/resumatch/resumatch/pkg/models"
)

const docTextTTL = statusTTL

// ScanDocuments runs one scan pass over documents of the given kind. In-flight
// leftovers from a dead run are resumed first, then queued documents are
// claimed. A document rate-limited earlier stays invisible until its timeout
// predates the backoff window. At most one item per user is dispatched per
// pass, and a failure on one document never stops the others.
func (r *Runner) ScanDocuments(ctx context.Context, kind string) {
	eligibleBefore := time.Now().UTC().Add(-r.backoff)
	seen := make(map[uuid.UUID]bool)
	var wg sync.WaitGroup

	inProgress, err := r.store.InProgressWorkDocuments(ctx, kind, eligibleBefore)
	if err != nil {
		slog.Error("scan in-progress documents", "kind", kind, "error", err)
		return
	}
	for _, doc := range inProgress {
		if seen[doc.UserID] {
			continue
		}
		// Already claimed by a run that died; resume directly, but only
		// if nothing else of this user's is in flight.
		busy, err := r.store.UserBusy(ctx, doc.UserID, doc.ID, uuid.Nil)
		if err != nil {
			slog.Error("user busy check", "document_id", doc.ID, "error", err)
			continue
		}
		if busy {
			continue
		}
		seen[doc.UserID] = true
		wg.Add(1)
		go func(doc *models.WorkDocument) {
			defer wg.Done()
			r.processDocument(ctx, doc)
		}(doc)
	}

	queued, err := r.store.QueuedWorkDocuments(ctx, kind)
	if err != nil {
		slog.Error("scan queued documents", "kind", kind, "error", err)
		wg.Wait()
		return
	}
	for _, doc := range queued {
		if seen[doc.UserID] {
			continue
		}
		ok, err := r.store.ClaimWorkDocument(ctx, doc.ID, doc.UserID)
		if err != nil {
			slog.Error("claim document", "document_id", doc.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		seen[doc.UserID] = true
		wg.Add(1)
		go func(doc *models.WorkDocument) {
			defer wg.Done()
			r.processDocument(ctx, doc)
		}(doc)
	}

	wg.Wait()
}

// processDocument extracts a claimed document and materializes the structured
// record. The document must already be marked in progress.
func (r *Runner) processDocument(ctx context.Context, doc *models.WorkDocument) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in processDocument", "document_id", doc.ID, "error", rec)
			r.failDocument(ctx, doc, "internal error")
		}
	}()

	_ = r.cache.SetWorkStatus(ctx, doc.ID, "in_progress", statusTTL)

	text, err := r.documentText(ctx, doc)
	if err != nil {
		slog.Error("extract document text", "document_id", doc.ID, "error", err)
		r.failDocument(ctx, doc, err.Error())
		return
	}

	client, err := r.clientFor(ctx, doc.UserID)
	if err != nil {
		slog.Error("build model client", "document_id", doc.ID, "error", err)
		r.failDocument(ctx, doc, err.Error())
		return
	}

	var promptText, systemMessage string
	switch doc.Kind {
	case models.KindResume:
		promptText, systemMessage = prompt.Resume(text), prompt.ResumeSystemMessage
	case models.KindJobPosting:
		promptText, systemMessage = prompt.JobPosting(text), prompt.JobPostingSystemMessage
	default:
		r.failDocument(ctx, doc, "unknown document kind "+doc.Kind)
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := client.Generate(genCtx, promptText, systemMessage)
	if err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			// Not a failure. Stamp the exhaustion time so the document sits
			// out the backoff window, then gets rescanned.
			slog.Warn("model rate limited, document deferred",
				"document_id", doc.ID, "provider", client.Name())
			if err := r.store.DeferWorkDocument(ctx, doc.ID, time.Now().UTC()); err != nil {
				slog.Error("defer work document", "document_id", doc.ID, "error", err)
			}
			return
		}
		slog.Error("model generate", "document_id", doc.ID, "provider", client.Name(), "error", err)
		r.failDocument(ctx, doc, err.Error())
		return
	}

	if err := r.materialize(ctx, doc, raw); err != nil {
		slog.Error("materialize document", "document_id", doc.ID, "error", err)
		r.failDocument(ctx, doc, err.Error())
		return
	}

	_ = r.cache.Delete(ctx, cache.DocumentTextKey(doc.ID))
	_ = r.cache.SetWorkStatus(ctx, doc.ID, "completed", statusTTL)

	// Every new record pairs with all existing counterparts.
	if n, err := r.store.CreateMissingCompatibilities(ctx, doc.UserID); err != nil {
		slog.Error("queue compatibilities", "user_id", doc.UserID, "error", err)
	} else if n > 0 {
		slog.Info("queued compatibility pairs", "user_id", doc.UserID, "count", n)
	}

	slog.Info("document materialized", "document_id", doc.ID, "kind", doc.Kind)
}

// documentText returns the extracted text, reusing the cached copy when a
// previous attempt already paid for the file parse.
func (r *Runner) documentText(ctx context.Context, doc *models.WorkDocument) (string, error) {
	if cached, ok, err := r.cache.Get(ctx, cache.DocumentTextKey(doc.ID)); err == nil && ok {
		return string(cached), nil
	}
	text, err := r.extractor.Text(doc.FilePath)
	if err != nil {
		return "", err
	}
	_ = r.cache.Set(ctx, cache.DocumentTextKey(doc.ID), []byte(text), docTextTTL)
	return text, nil
}

func (r *Runner) materialize(ctx context.Context, doc *models.WorkDocument, raw string) error {
	switch doc.Kind {
	case models.KindResume:
		ex, payload, err := ai.ParseResumeExtraction(raw)
		if err != nil {
			return err
		}
		_, err = r.store.MaterializeResume(ctx, doc, ex, payload)
		return err
	default:
		ex, payload, err := ai.ParseJobPostingExtraction(raw)
		if err != nil {
			return err
		}
		_, err = r.store.MaterializeJobPosting(ctx, doc, ex, payload)
		return err
	}
}

func (r *Runner) failDocument(ctx context.Context, doc *models.WorkDocument, message string) {
	if err := r.store.FailWorkDocument(ctx, doc.ID, message); err != nil {
		slog.Error("mark document failed", "document_id", doc.ID, "error", err)
	}
	_ = r.cache.SetWorkStatus(ctx, doc.ID, "is_error", statusTTL)
}
