package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/resumatch/resumatch/internal/store"
	"github.com/resumatch/resumatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("resumatch_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

// defaultUserID returns the UUID of the seeded default user.
func defaultUserID(t *testing.T, s store.Store) uuid.UUID {
	t.Helper()
	user, err := s.GetDefaultUser(context.Background())
	require.NoError(t, err)
	return user.ID
}

// createDoc inserts a queued work document.
func createDoc(t *testing.T, s store.Store, userID uuid.UUID, kind string) *models.WorkDocument {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &models.WorkDocument{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		FilePath:  "uploads/" + uuid.NewString() + ".pdf",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateWorkDocument(context.Background(), doc))
	return doc
}

// seedResume materializes a minimal resume and returns its ID.
func seedResume(t *testing.T, s store.Store, userID uuid.UUID) uuid.UUID {
	t.Helper()
	doc := createDoc(t, s, userID, models.KindResume)
	name := "Test Person"
	r, err := s.MaterializeResume(context.Background(), doc,
		&models.ResumeExtraction{Name: &name, Skills: []string{"Go"}},
		json.RawMessage(`{"name":"Test Person"}`))
	require.NoError(t, err)
	return r.ID
}

// seedPosting materializes a minimal job posting and returns its ID.
func seedPosting(t *testing.T, s store.Store, userID uuid.UUID) uuid.UUID {
	t.Helper()
	doc := createDoc(t, s, userID, models.KindJobPosting)
	title := "Backend Engineer"
	p, err := s.MaterializeJobPosting(context.Background(), doc,
		&models.JobPostingExtraction{Title: &title},
		json.RawMessage(`{"title":"Backend Engineer"}`))
	require.NoError(t, err)
	return p.ID
}

// seedCompatibility creates one queued record for a fresh resume/posting pair.
func seedCompatibility(t *testing.T, s store.Store, userID uuid.UUID) *models.Compatibility {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &models.Compatibility{
		ID:        uuid.New(),
		UserID:    userID,
		ResumeID:  seedResume(t, s, userID),
		PostingID: seedPosting(t, s, userID),
		Status:    models.CompatibilityInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateCompatibility(ctx, c))
	return c
}

// --- User Tests ---

func TestGetDefaultUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	user, err := s.GetDefaultUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default", user.Name)
	assert.NotEqual(t, uuid.Nil, user.ID)
}

func TestGetModelSettings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	userID := defaultUserID(t, s)

	settings, err := s.GetModelSettings(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderOllama, settings.Provider)
	assert.NotEmpty(t, settings.Model)
}

func TestGetModelSettings_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetModelSettings(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- API Key Tests ---

func TestAPIKey_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "test-key",
		KeyHash:   "bcrypt-hash-here",
		KeyPrefix: "rm_abcd",
		CreatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	keys, err := s.GetAPIKeyByPrefix(ctx, "rm_abcd")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, "test-key", keys[0].Name)
}

func TestAPIKey_UpdateLastUsed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	key := &models.APIKey{
		ID: uuid.New(), UserID: userID, Name: "usage-key",
		KeyHash: "hash", KeyPrefix: "rm_used", CreatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))
	require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))

	keys, err := s.GetAPIKeyByPrefix(ctx, "rm_used")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestAPIKey_DuplicateID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	id := uuid.New()
	require.NoError(t, s.CreateAPIKey(ctx, &models.APIKey{
		ID: id, UserID: userID, Name: "dup1", KeyHash: "h1", KeyPrefix: "rm_dup1", CreatedAt: now,
	}))
	err := s.CreateAPIKey(ctx, &models.APIKey{
		ID: id, UserID: userID, Name: "dup2", KeyHash: "h2", KeyPrefix: "rm_dup2", CreatedAt: now,
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestAPIKey_Count(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	count, err := s.CountAPIKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.CreateAPIKey(ctx, &models.APIKey{
		ID: uuid.New(), UserID: userID, Name: "first", KeyHash: "h", KeyPrefix: "rm_cnt1", CreatedAt: now,
	}))

	count, err = s.CountAPIKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// --- Work Document Tests ---

func TestWorkDocument_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)

	got, err := s.GetWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, doc.FilePath, got.FilePath)
	assert.False(t, got.InProgress)
	assert.False(t, got.IsError)
}

func TestWorkDocument_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetWorkDocument(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkDocument_QueuedExcludesClaimedAndErrored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	queued := createDoc(t, s, userID, models.KindResume)
	claimed := createDoc(t, s, userID, models.KindResume)
	errored := createDoc(t, s, userID, models.KindResume)
	createDoc(t, s, userID, models.KindJobPosting) // other kind

	ok, err := s.ClaimWorkDocument(ctx, claimed.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.FailWorkDocument(ctx, errored.ID, "boom"))

	docs, err := s.QueuedWorkDocuments(ctx, models.KindResume)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, queued.ID, docs[0].ID)

	inProg, err := s.InProgressWorkDocuments(ctx, models.KindResume, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, inProg, 1)
	assert.Equal(t, claimed.ID, inProg[0].ID)
}

func TestWorkDocument_DeferHidesUntilBackoffElapses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	ok, err := s.ClaimWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	now := time.Now().UTC()
	require.NoError(t, s.DeferWorkDocument(ctx, doc.ID, now))

	// Invisible while the timeout postdates the cutoff.
	inProg, err := s.InProgressWorkDocuments(ctx, models.KindResume, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, inProg)

	// Visible again once the cutoff passes it.
	inProg, err = s.InProgressWorkDocuments(ctx, models.KindResume, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, inProg, 1)
	assert.Equal(t, doc.ID, inProg[0].ID)
}

func TestWorkDocument_DeferRequiresClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	err := s.DeferWorkDocument(ctx, doc.ID, time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkDocument_QueueOrderStableOnEqualTimestamps(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	// Uploads landing in the same microsecond must still come back in a
	// fixed order.
	now := time.Now().UTC().Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 3; i++ {
		doc := &models.WorkDocument{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      models.KindResume,
			FilePath:  "uploads/" + uuid.NewString() + ".pdf",
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, s.CreateWorkDocument(ctx, doc))
		ids = append(ids, doc.ID.String())
	}
	sort.Strings(ids)

	docs, err := s.QueuedWorkDocuments(ctx, models.KindResume)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i, doc := range docs {
		assert.Equal(t, ids[i], doc.ID.String())
	}
}

func TestWorkDocument_ClaimBlockedByInProgressDoc(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	first := createDoc(t, s, userID, models.KindResume)
	second := createDoc(t, s, userID, models.KindJobPosting)

	ok, err := s.ClaimWorkDocument(ctx, first.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	// Same user, different document, even of another kind.
	ok, err = s.ClaimWorkDocument(ctx, second.ID, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorkDocument_ClaimBlockedByInProgressCompatibility(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	ok, err := s.ClaimCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	doc := createDoc(t, s, userID, models.KindResume)
	ok, err = s.ClaimWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorkDocument_ClaimAlreadyClaimed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	ok, err := s.ClaimWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ClaimWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorkDocument_ConcurrentClaimsSameUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	const n = 8
	docs := make([]*models.WorkDocument, n)
	for i := range docs {
		docs[i] = createDoc(t, s, userID, models.KindResume)
	}

	// All claims race for the same user; the per-user lock must let
	// exactly one through.
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.ClaimWorkDocument(ctx, docs[i].ID, userID)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	claimed := 0
	for _, ok := range results {
		if ok {
			claimed++
		}
	}
	assert.Equal(t, 1, claimed)
}

func TestWorkDocument_FailAndRetry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	ok, err := s.ClaimWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.FailWorkDocument(ctx, doc.ID, "unreadable file"))

	got, err := s.GetWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	assert.True(t, got.IsError)
	assert.False(t, got.InProgress)
	require.NotNil(t, got.Error)
	assert.Equal(t, "unreadable file", *got.Error)

	// Retry puts it back in the queue.
	require.NoError(t, s.RetryWorkDocument(ctx, doc.ID, userID))
	docs, err := s.QueuedWorkDocuments(ctx, models.KindResume)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Nil(t, docs[0].Error)
}

func TestWorkDocument_RetryNotErrored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	err := s.RetryWorkDocument(ctx, doc.ID, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Materialization Tests ---

func TestMaterializeResume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	name := "Jane Doe"
	company := "Acme"
	start := "2020-03"
	degree := "BSc"
	ex := &models.ResumeExtraction{
		Name:   &name,
		Skills: []string{"Go", "Postgres"},
		Experiences: []models.ExperienceExtraction{
			{Company: &company, StartDate: &start},
		},
		Educations: []models.EducationExtraction{
			{Degree: &degree, GraduationYear: float64(2019)},
		},
	}

	r, err := s.MaterializeResume(ctx, doc, ex, json.RawMessage(`{"name":"Jane Doe"}`))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, r.ID)

	got, err := s.GetResume(ctx, r.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Jane Doe", *got.Name)
	require.NotNil(t, got.Skills)
	assert.Equal(t, "Go, Postgres", *got.Skills)
	require.Len(t, got.Experiences, 1)
	require.NotNil(t, got.Experiences[0].StartDate)
	assert.Equal(t, 2020, got.Experiences[0].StartDate.Year())
	require.Len(t, got.Educations, 1)
	require.NotNil(t, got.Educations[0].GraduationYear)
	assert.Equal(t, 2019, *got.Educations[0].GraduationYear)

	// The work document is gone.
	_, err = s.GetWorkDocument(ctx, doc.ID, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMaterializeJobPosting(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindJobPosting)
	title := "Platform Engineer"
	months := 24
	freshers := false
	ex := &models.JobPostingExtraction{
		Title:                   &title,
		MainTechnologies:        []string{"Go", "Kubernetes"},
		MinExperienceInMonths:   &months,
		IsApplicableForFreshers: &freshers,
	}

	p, err := s.MaterializeJobPosting(ctx, doc, ex, json.RawMessage(`{"title":"Platform Engineer"}`))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, p.ID)

	postings, err := s.ListJobPostings(ctx, userID)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.NotNil(t, postings[0].Title)
	assert.Equal(t, "Platform Engineer", *postings[0].Title)
	require.NotNil(t, postings[0].MainTechnologies)
	assert.Equal(t, "Go, Kubernetes", *postings[0].MainTechnologies)

	_, err = s.GetWorkDocument(ctx, doc.ID, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Compatibility Tests ---

func TestCreateMissingCompatibilities(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	seedResume(t, s, userID)
	seedResume(t, s, userID)
	seedPosting(t, s, userID)

	n, err := s.CreateMissingCompatibilities(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Idempotent: existing pairs are skipped.
	n, err = s.CreateMissingCompatibilities(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A new posting adds the missing pairs only.
	seedPosting(t, s, userID)
	n, err = s.CreateMissingCompatibilities(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCompatibility_DuplicatePair(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	dup := &models.Compatibility{
		ID: uuid.New(), UserID: userID, ResumeID: c.ResumeID, PostingID: c.PostingID,
		Status: models.CompatibilityInQueue, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
	err := s.CreateCompatibility(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestCompatibility_ClaimAndComplete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	ok, err := s.ClaimCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	// A second claim finds it no longer queued.
	ok, err = s.ClaimCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CompleteCompatibility(ctx, c.ID, 82.5, 74.0))

	got, err := s.GetCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.CompatibilityCompleted, got.Status)
	require.NotNil(t, got.ResumeScore)
	assert.InDelta(t, 82.5, *got.ResumeScore, 0.001)
	require.NotNil(t, got.PostingScore)
	assert.InDelta(t, 74.0, *got.PostingScore, 0.001)
}

func TestCompatibility_DeferRespectsBackoff(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	ok, err := s.ClaimCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	now := time.Now().UTC()
	require.NoError(t, s.DeferCompatibility(ctx, c.ID, now))

	// Still in progress, invisible while the window is open.
	got, err := s.GetCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.CompatibilityInProgress, got.Status)

	recs, err := s.InProgressCompatibilities(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, recs)

	// Eligible again once the cutoff passes the timeout.
	recs, err = s.InProgressCompatibilities(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, c.ID, recs[0].ID)
}

func TestCompatibility_QueuedEligibility(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)

	recs, err := s.QueuedCompatibilities(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, c.ID, recs[0].ID)
}

func TestCompatibility_FailAndRequeue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	ok, err := s.ClaimCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.FailCompatibility(ctx, c.ID, "malformed model output"))
	got, err := s.GetCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.CompatibilityIsError, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "malformed model output", *got.Error)

	require.NoError(t, s.RequeueCompatibility(ctx, c.ID, userID))
	got, err = s.GetCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.CompatibilityInQueue, got.Status)
	assert.Nil(t, got.Error)
	assert.Nil(t, got.ResumeScore)
}

func TestCompatibility_RequeueInProgressRefused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	ok, err := s.ClaimCompatibility(ctx, c.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	err = s.RequeueCompatibility(ctx, c.ID, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompatibility_Payloads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	c := seedCompatibility(t, s, userID)
	resume, posting, err := s.CompatibilityPayloads(ctx, c.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Test Person"}`, string(resume))
	assert.JSONEq(t, `{"title":"Backend Engineer"}`, string(posting))
}

// --- UserBusy Tests ---

func TestUserBusy_ExcludesNamedRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	doc := createDoc(t, s, userID, models.KindResume)
	ok, err := s.ClaimWorkDocument(ctx, doc.ID, userID)
	require.NoError(t, err)
	require.True(t, ok)

	busy, err := s.UserBusy(ctx, userID, uuid.Nil, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, busy)

	// Excluding the claimed document itself clears the flag.
	busy, err = s.UserBusy(ctx, userID, doc.ID, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, busy)
}

// --- Ping Test ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.Ping(context.Background())
	assert.NoError(t, err)
}
