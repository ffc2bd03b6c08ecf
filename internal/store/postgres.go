package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/resumatch/resumatch/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetDefaultUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM users WHERE name = 'default' LIMIT 1`,
	).Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetModelSettings(ctx context.Context, userID uuid.UUID) (*models.ModelSettings, error) {
	var m models.ModelSettings
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, provider, model, credential FROM model_settings WHERE user_id = $1`, userID,
	).Scan(&m.UserID, &m.Provider, &m.Model, &m.Credential)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model settings: %w", err)
	}
	return &m, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, revoked_at, created_at
		 FROM api_keys WHERE key_prefix = $1 AND revoked_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.RevokedAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountAPIKeys(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

// --- Work Documents ---

const workDocumentCols = `id, user_id, kind, file_path, in_progress, is_error, error, resource_timeout, created_at, updated_at`

func scanWorkDocument(row pgx.Row) (*models.WorkDocument, error) {
	var d models.WorkDocument
	err := row.Scan(&d.ID, &d.UserID, &d.Kind, &d.FilePath, &d.InProgress,
		&d.IsError, &d.Error, &d.ResourceTimeout, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) CreateWorkDocument(ctx context.Context, doc *models.WorkDocument) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO work_documents (id, user_id, kind, file_path, in_progress, is_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, FALSE, FALSE, $5, $6)`,
		doc.ID, doc.UserID, doc.Kind, doc.FilePath, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create work document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkDocument(ctx context.Context, id, userID uuid.UUID) (*models.WorkDocument, error) {
	doc, err := scanWorkDocument(s.pool.QueryRow(ctx,
		`SELECT `+workDocumentCols+` FROM work_documents WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get work document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListWorkDocuments(ctx context.Context, userID uuid.UUID, kind string) ([]*models.WorkDocument, error) {
	query := `SELECT ` + workDocumentCols + ` FROM work_documents WHERE user_id = $1`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work documents: %w", err)
	}
	defer rows.Close()
	return collectWorkDocuments(rows)
}

// QueuedWorkDocuments returns documents of the given kind that are waiting to
// be picked up, oldest first.
func (s *PostgresStore) QueuedWorkDocuments(ctx context.Context, kind string) ([]*models.WorkDocument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+workDocumentCols+` FROM work_documents
		 WHERE kind = $1 AND NOT in_progress AND NOT is_error
		 ORDER BY created_at ASC, id ASC`, kind)
	if err != nil {
		return nil, fmt.Errorf("queued work documents: %w", err)
	}
	defer rows.Close()
	return collectWorkDocuments(rows)
}

// InProgressWorkDocuments returns documents of the given kind still marked in
// progress whose backoff window, if any, elapsed before the given instant,
// oldest first. These are either recoveries from a dead run or rate-limited
// documents waiting out the window.
func (s *PostgresStore) InProgressWorkDocuments(ctx context.Context, kind string, eligibleBefore time.Time) ([]*models.WorkDocument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+workDocumentCols+` FROM work_documents
		 WHERE kind = $1 AND in_progress AND NOT is_error
		   AND (resource_timeout IS NULL OR resource_timeout <= $2)
		 ORDER BY created_at ASC, id ASC`, kind, eligibleBefore)
	if err != nil {
		return nil, fmt.Errorf("in-progress work documents: %w", err)
	}
	defer rows.Close()
	return collectWorkDocuments(rows)
}

func collectWorkDocuments(rows pgx.Rows) ([]*models.WorkDocument, error) {
	var docs []*models.WorkDocument
	for rows.Next() {
		doc, err := scanWorkDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) FailWorkDocument(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE work_documents
		 SET in_progress = FALSE, is_error = TRUE, error = $2, resource_timeout = NULL, updated_at = NOW()
		 WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("fail work document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeferWorkDocument records model-resource exhaustion. The document keeps its
// in-progress claim and becomes eligible again once the timeout passes.
func (s *PostgresStore) DeferWorkDocument(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE work_documents SET resource_timeout = $2, updated_at = NOW()
		 WHERE id = $1 AND in_progress`, id, at)
	if err != nil {
		return fmt.Errorf("defer work document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RetryWorkDocument clears the error flags so the next scan picks the
// document up again.
func (s *PostgresStore) RetryWorkDocument(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE work_documents
		 SET in_progress = FALSE, is_error = FALSE, error = NULL, resource_timeout = NULL, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND is_error`, id, userID)
	if err != nil {
		return fmt.Errorf("retry work document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Resumes ---

const resumeCols = `id, user_id, name, phone, email, more_contact_details, nationalities, position, skills, file_path, payload, created_at`

func scanResume(row pgx.Row) (*models.Resume, error) {
	var r models.Resume
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Phone, &r.Email, &r.MoreContactDetails,
		&r.Nationalities, &r.Position, &r.Skills, &r.FilePath, &r.Payload, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListResumes(ctx context.Context, userID uuid.UUID) ([]*models.Resume, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+resumeCols+` FROM resumes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []*models.Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, rows.Err()
}

// GetResume returns a resume with its experiences and educations loaded.
func (s *PostgresStore) GetResume(ctx context.Context, id, userID uuid.UUID) (*models.Resume, error) {
	r, err := scanResume(s.pool.QueryRow(ctx,
		`SELECT `+resumeCols+` FROM resumes WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resume: %w", err)
	}

	expRows, err := s.pool.Query(ctx,
		`SELECT id, resume_id, company, title, start_date, end_date, responsibilities
		 FROM experiences WHERE resume_id = $1 ORDER BY start_date DESC NULLS LAST, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer expRows.Close()
	for expRows.Next() {
		var e models.Experience
		if err := expRows.Scan(&e.ID, &e.ResumeID, &e.Company, &e.Title,
			&e.StartDate, &e.EndDate, &e.Responsibilities); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		r.Experiences = append(r.Experiences, e)
	}
	if err := expRows.Err(); err != nil {
		return nil, err
	}

	eduRows, err := s.pool.Query(ctx,
		`SELECT id, resume_id, degree, institution, graduation_year
		 FROM educations WHERE resume_id = $1 ORDER BY graduation_year DESC NULLS LAST, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list educations: %w", err)
	}
	defer eduRows.Close()
	for eduRows.Next() {
		var e models.Education
		if err := eduRows.Scan(&e.ID, &e.ResumeID, &e.Degree, &e.Institution, &e.GraduationYear); err != nil {
			return nil, fmt.Errorf("scan education: %w", err)
		}
		r.Educations = append(r.Educations, e)
	}
	return r, eduRows.Err()
}

// --- Job Postings ---

const jobPostingCols = `id, user_id, title, position, company, phone, email, more_contact_details,
	description, main_technologies, required_skills, responsibilities,
	required_qualification, preferred_qualification,
	min_experience_in_months, max_experience_in_months, salary,
	address, city, state, country, postal_code,
	is_applicable_for_freshers, total_paid_leaves, weekly_working_days, other_benefits,
	file_path, payload, created_at`

func scanJobPosting(row pgx.Row) (*models.JobPosting, error) {
	var p models.JobPosting
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Position, &p.Company, &p.Phone, &p.Email,
		&p.MoreContactDetails, &p.Description, &p.MainTechnologies, &p.RequiredSkills,
		&p.Responsibilities, &p.RequiredQualification, &p.PreferredQualification,
		&p.MinExperienceInMonths, &p.MaxExperienceInMonths, &p.Salary,
		&p.Address, &p.City, &p.State, &p.Country, &p.PostalCode,
		&p.IsApplicableForFreshers, &p.TotalPaidLeaves, &p.WeeklyWorkingDays, &p.OtherBenefits,
		&p.FilePath, &p.Payload, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ListJobPostings(ctx context.Context, userID uuid.UUID) ([]*models.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobPostingCols+` FROM job_postings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list job postings: %w", err)
	}
	defer rows.Close()

	var postings []*models.JobPosting
	for rows.Next() {
		p, err := scanJobPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// --- Compatibilities ---

const compatibilityCols = `id, user_id, resume_id, posting_id, status, resume_score, posting_score, error, resource_timeout, created_at, updated_at`

func scanCompatibility(row pgx.Row) (*models.Compatibility, error) {
	var c models.Compatibility
	err := row.Scan(&c.ID, &c.UserID, &c.ResumeID, &c.PostingID, &c.Status,
		&c.ResumeScore, &c.PostingScore, &c.Error, &c.ResourceTimeout,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCompatibility(ctx context.Context, c *models.Compatibility) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO compatibilities (id, user_id, resume_id, posting_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.ResumeID, c.PostingID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create compatibility: %w", err)
	}
	return nil
}

// CreateMissingCompatibilities queues a record for every (resume, posting)
// pair of the user that has none yet. Returns the number of pairs queued.
func (s *PostgresStore) CreateMissingCompatibilities(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO compatibilities (id, user_id, resume_id, posting_id, status, created_at, updated_at)
		 SELECT gen_random_uuid(), $1, r.id, p.id, $2, NOW(), NOW()
		 FROM resumes r CROSS JOIN job_postings p
		 WHERE r.user_id = $1 AND p.user_id = $1
		 ON CONFLICT (resume_id, posting_id) DO NOTHING`,
		userID, models.CompatibilityInQueue)
	if err != nil {
		return 0, fmt.Errorf("create missing compatibilities: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListCompatibilities(ctx context.Context, userID uuid.UUID) ([]*models.Compatibility, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+compatibilityCols+` FROM compatibilities WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list compatibilities: %w", err)
	}
	defer rows.Close()
	return collectCompatibilities(rows)
}

func (s *PostgresStore) GetCompatibility(ctx context.Context, id, userID uuid.UUID) (*models.Compatibility, error) {
	c, err := scanCompatibility(s.pool.QueryRow(ctx,
		`SELECT `+compatibilityCols+` FROM compatibilities WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get compatibility: %w", err)
	}
	return c, nil
}

// QueuedCompatibilities returns queued records whose backoff window, if any,
// elapsed before the given instant, oldest first.
func (s *PostgresStore) QueuedCompatibilities(ctx context.Context, eligibleBefore time.Time) ([]*models.Compatibility, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+compatibilityCols+` FROM compatibilities
		 WHERE status = $1 AND (resource_timeout IS NULL OR resource_timeout <= $2)
		 ORDER BY created_at ASC, id ASC`, models.CompatibilityInQueue, eligibleBefore)
	if err != nil {
		return nil, fmt.Errorf("queued compatibilities: %w", err)
	}
	defer rows.Close()
	return collectCompatibilities(rows)
}

// InProgressCompatibilities returns in-progress records whose backoff window,
// if any, elapsed before the given instant, oldest first. These are either
// recoveries from a dead run or rate-limited records waiting out the window.
func (s *PostgresStore) InProgressCompatibilities(ctx context.Context, eligibleBefore time.Time) ([]*models.Compatibility, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+compatibilityCols+` FROM compatibilities
		 WHERE status = $1 AND (resource_timeout IS NULL OR resource_timeout <= $2)
		 ORDER BY created_at ASC, id ASC`, models.CompatibilityInProgress, eligibleBefore)
	if err != nil {
		return nil, fmt.Errorf("in-progress compatibilities: %w", err)
	}
	defer rows.Close()
	return collectCompatibilities(rows)
}

func collectCompatibilities(rows pgx.Rows) ([]*models.Compatibility, error) {
	var recs []*models.Compatibility
	for rows.Next() {
		c, err := scanCompatibility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compatibility: %w", err)
		}
		recs = append(recs, c)
	}
	return recs, rows.Err()
}

func (s *PostgresStore) CompleteCompatibility(ctx context.Context, id uuid.UUID, resumeScore, postingScore float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE compatibilities
		 SET status = $2, resume_score = $3, posting_score = $4, error = NULL, resource_timeout = NULL, updated_at = NOW()
		 WHERE id = $1`, id, models.CompatibilityCompleted, resumeScore, postingScore)
	if err != nil {
		return fmt.Errorf("complete compatibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeferCompatibility records model-resource exhaustion. The record keeps its
// in-progress status and becomes eligible again once the timeout passes.
func (s *PostgresStore) DeferCompatibility(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE compatibilities
		 SET status = $2, resource_timeout = $3, updated_at = NOW()
		 WHERE id = $1`, id, models.CompatibilityInProgress, at)
	if err != nil {
		return fmt.Errorf("defer compatibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FailCompatibility(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE compatibilities
		 SET status = $2, error = $3, resource_timeout = NULL, updated_at = NOW()
		 WHERE id = $1`, id, models.CompatibilityIsError, message)
	if err != nil {
		return fmt.Errorf("fail compatibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueCompatibility resets a finished or failed record so the next scan
// recomputes it. Records currently in progress are left alone.
func (s *PostgresStore) RequeueCompatibility(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE compatibilities
		 SET status = $3, resume_score = NULL, posting_score = NULL, error = NULL, resource_timeout = NULL, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status <> $4`,
		id, userID, models.CompatibilityInQueue, models.CompatibilityInProgress)
	if err != nil {
		return fmt.Errorf("requeue compatibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompatibilityPayloads returns the stored extraction payloads of the resume
// and posting behind a compatibility record.
func (s *PostgresStore) CompatibilityPayloads(ctx context.Context, id uuid.UUID) (json.RawMessage, json.RawMessage, error) {
	var resume, posting json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT r.payload, p.payload
		 FROM compatibilities c
		 JOIN resumes r ON r.id = c.resume_id
		 JOIN job_postings p ON p.id = c.posting_id
		 WHERE c.id = $1`, id,
	).Scan(&resume, &posting)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("compatibility payloads: %w", err)
	}
	return resume, posting, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
