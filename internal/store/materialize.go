package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/resumatch/resumatch/pkg/models"
)

// MaterializeResume turns a claimed work document into a resume row plus its
// experience and education children, and removes the work document, all in
// one transaction. The resume reuses the document's ID so the upload handle
// stays valid as a reference to the structured record.
func (s *PostgresStore) MaterializeResume(ctx context.Context, doc *models.WorkDocument, ex *models.ResumeExtraction, payload json.RawMessage) (*models.Resume, error) {
	now := time.Now().UTC()
	r := &models.Resume{
		ID:                 doc.ID,
		UserID:             doc.UserID,
		Name:               ex.Name,
		Phone:              ex.Phone,
		Email:              ex.Email,
		MoreContactDetails: ex.MoreContactDetails,
		Nationalities:      ex.Nationalities,
		Position:           ex.Position,
		Skills:             joinList(ex.Skills),
		FilePath:           doc.FilePath,
		Payload:            payload,
		CreatedAt:          now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin materialize: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO resumes (id, user_id, name, phone, email, more_contact_details, nationalities, position, skills, file_path, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.UserID, r.Name, r.Phone, r.Email, r.MoreContactDetails,
		r.Nationalities, r.Position, r.Skills, r.FilePath, r.Payload, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert resume: %w", err)
	}

	if len(ex.Experiences) > 0 {
		rows := make([][]any, 0, len(ex.Experiences))
		for _, e := range ex.Experiences {
			rows = append(rows, []any{
				r.ID, e.Company, e.Title,
				parseFlexibleDate(e.StartDate), parseFlexibleDate(e.EndDate),
				e.Responsibilities,
			})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"experiences"},
			[]string{"resume_id", "company", "title", "start_date", "end_date", "responsibilities"}, pgx.CopyFromRows(rows))
		if err != nil {
			return nil, fmt.Errorf("insert experiences: %w", err)
		}
	}

	if len(ex.Educations) > 0 {
		rows := make([][]any, 0, len(ex.Educations))
		for _, e := range ex.Educations {
			rows = append(rows, []any{r.ID, e.Degree, e.Institution, coerceYear(e.GraduationYear)})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"educations"},
			[]string{"resume_id", "degree", "institution", "graduation_year"}, pgx.CopyFromRows(rows))
		if err != nil {
			return nil, fmt.Errorf("insert educations: %w", err)
		}
	}

	if err := deleteWorkDocumentTx(ctx, tx, doc); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit materialize: %w", err)
	}
	return r, nil
}

// MaterializeJobPosting turns a claimed work document into a job posting row
// and removes the work document in one transaction.
func (s *PostgresStore) MaterializeJobPosting(ctx context.Context, doc *models.WorkDocument, ex *models.JobPostingExtraction, payload json.RawMessage) (*models.JobPosting, error) {
	now := time.Now().UTC()
	p := &models.JobPosting{
		ID:                     doc.ID,
		UserID:                 doc.UserID,
		Title:                  ex.Title,
		Position:               ex.Position,
		Company:                ex.Company,
		Phone:                  ex.Phone,
		Email:                  ex.Email,
		MoreContactDetails:     ex.MoreContactDetails,
		Description:            ex.Description,
		MainTechnologies:       joinList(ex.MainTechnologies),
		RequiredSkills:         joinList(ex.RequiredSkills),
		Responsibilities:       joinList(ex.Responsibilities),
		RequiredQualification:  ex.RequiredQualification,
		PreferredQualification: ex.PreferredQualification,
		MinExperienceInMonths:  ex.MinExperienceInMonths,
		MaxExperienceInMonths:  ex.MaxExperienceInMonths,
		Salary:                 ex.Salary,
		Address:                ex.Address,
		City:                   ex.City,
		State:                  ex.State,
		Country:                ex.Country,
		PostalCode:             ex.PostalCode,
		TotalPaidLeaves:        ex.TotalPaidLeaves,
		WeeklyWorkingDays:      ex.WeeklyWorkingDays,
		OtherBenefits:          ex.OtherBenefits,
		FilePath:               doc.FilePath,
		Payload:                payload,
		CreatedAt:              now,
	}
	if ex.IsApplicableForFreshers != nil {
		p.IsApplicableForFreshers = *ex.IsApplicableForFreshers
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin materialize: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO job_postings (id, user_id, title, position, company, phone, email, more_contact_details,
			description, main_technologies, required_skills, responsibilities,
			required_qualification, preferred_qualification,
			min_experience_in_months, max_experience_in_months, salary,
			address, city, state, country, postal_code,
			is_applicable_for_freshers, total_paid_leaves, weekly_working_days, other_benefits,
			file_path, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		p.ID, p.UserID, p.Title, p.Position, p.Company, p.Phone, p.Email, p.MoreContactDetails,
		p.Description, p.MainTechnologies, p.RequiredSkills, p.Responsibilities,
		p.RequiredQualification, p.PreferredQualification,
		p.MinExperienceInMonths, p.MaxExperienceInMonths, p.Salary,
		p.Address, p.City, p.State, p.Country, p.PostalCode,
		p.IsApplicableForFreshers, p.TotalPaidLeaves, p.WeeklyWorkingDays, p.OtherBenefits,
		p.FilePath, p.Payload, p.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert job posting: %w", err)
	}

	if err := deleteWorkDocumentTx(ctx, tx, doc); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit materialize: %w", err)
	}
	return p, nil
}

func deleteWorkDocumentTx(ctx context.Context, tx pgx.Tx, doc *models.WorkDocument) error {
	tag, err := tx.Exec(ctx,
		`DELETE FROM work_documents WHERE id = $1 AND user_id = $2`, doc.ID, doc.UserID)
	if err != nil {
		return fmt.Errorf("delete work document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func joinList(items []string) *string {
	var kept []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	joined := strings.Join(kept, ", ")
	return &joined
}

var dateLayouts = []string{"2006-01-02", "2006-01", "January 2006", "Jan 2006", "2006"}

// parseFlexibleDate accepts the date shapes models actually produce. Anything
// unparseable becomes NULL rather than failing the whole extraction.
func parseFlexibleDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "present") || strings.EqualFold(v, "current") {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// coerceYear accepts the number or string a model emits for a year.
func coerceYear(v any) *int {
	switch y := v.(type) {
	case float64:
		year := int(y)
		return &year
	case int:
		return &y
	case json.Number:
		if n, err := y.Int64(); err == nil {
			year := int(n)
			return &year
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
			return &n
		}
	}
	return nil
}
