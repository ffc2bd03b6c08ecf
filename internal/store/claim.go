package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resumatch/resumatch/pkg/models"
)

// Claiming marks a row in progress only if its owner has no other work in
// flight. Plain read-committed checks are not enough here: two concurrent
// claims for different rows of the same user would each pass the busy check
// before either commits. An advisory lock keyed on the owner serializes the
// check-then-update per user while leaving other users unaffected.

const busyQuery = `
	SELECT EXISTS (
		SELECT 1 FROM work_documents
		WHERE user_id = $1 AND in_progress AND NOT is_error AND id <> $2
	) OR EXISTS (
		SELECT 1 FROM compatibilities
		WHERE user_id = $1 AND status = $4 AND id <> $3
	)`

// UserBusy reports whether the user owns any in-progress work document or
// compatibility record other than the excluded rows.
func (s *PostgresStore) UserBusy(ctx context.Context, userID, excludeDoc, excludeCompat uuid.UUID) (bool, error) {
	var busy bool
	err := s.pool.QueryRow(ctx, busyQuery,
		userID, excludeDoc, excludeCompat, models.CompatibilityInProgress).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("user busy: %w", err)
	}
	return busy, nil
}

func userBusyTx(ctx context.Context, tx pgx.Tx, userID, excludeDoc, excludeCompat uuid.UUID) (bool, error) {
	var busy bool
	err := tx.QueryRow(ctx, busyQuery,
		userID, excludeDoc, excludeCompat, models.CompatibilityInProgress).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("user busy: %w", err)
	}
	return busy, nil
}

func lockUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	// Held until the transaction ends.
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID)
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

// ClaimWorkDocument atomically marks the document in progress. Returns false
// without error when the user already has other work in flight or the
// document is no longer claimable.
func (s *PostgresStore) ClaimWorkDocument(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockUser(ctx, tx, userID); err != nil {
		return false, err
	}

	busy, err := userBusyTx(ctx, tx, userID, id, uuid.Nil)
	if err != nil {
		return false, err
	}
	if busy {
		return false, nil
	}

	tag, err := tx.Exec(ctx,
		`UPDATE work_documents SET in_progress = TRUE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND NOT in_progress AND NOT is_error`, id, userID)
	if err != nil {
		return false, fmt.Errorf("claim work document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit claim: %w", err)
	}
	return true, nil
}

// ClaimCompatibility atomically moves the record from in_queue to
// in_progress. Returns false without error when the user already has other
// work in flight or the record is no longer queued.
func (s *PostgresStore) ClaimCompatibility(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockUser(ctx, tx, userID); err != nil {
		return false, err
	}

	busy, err := userBusyTx(ctx, tx, userID, uuid.Nil, id)
	if err != nil {
		return false, err
	}
	if busy {
		return false, nil
	}

	tag, err := tx.Exec(ctx,
		`UPDATE compatibilities SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status = $4`,
		id, userID, models.CompatibilityInProgress, models.CompatibilityInQueue)
	if err != nil {
		return false, fmt.Errorf("claim compatibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit claim: %w", err)
	}
	return true, nil
}
