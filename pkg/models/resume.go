package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Resume is the structured entity materialized from a resume WorkDocument.
// Immutable after creation except by direct user edit.
type Resume struct {
	ID                 uuid.UUID       `db:"id"                   json:"id"`
	UserID             uuid.UUID       `db:"user_id"              json:"user_id"`
	Name               *string         `db:"name"                 json:"name"`
	Phone              *string         `db:"phone"                json:"phone"`
	Email              *string         `db:"email"                json:"email"`
	MoreContactDetails *string         `db:"more_contact_details" json:"more_contact_details"`
	Nationalities      *string         `db:"nationalities"        json:"nationalities"`
	Position           *string         `db:"position"             json:"position"`
	Skills             *string         `db:"skills"               json:"skills"`
	FilePath           string          `db:"file_path"            json:"file_path"`
	Payload            json.RawMessage `db:"payload"              json:"payload"`
	CreatedAt          time.Time       `db:"created_at"           json:"created_at"`

	Experiences []Experience `db:"-" json:"experiences,omitempty"`
	Educations  []Education  `db:"-" json:"educations,omitempty"`
}

// Experience is one work-history entry, bulk-inserted alongside its resume.
type Experience struct {
	ID               int64      `db:"id"               json:"id"`
	ResumeID         uuid.UUID  `db:"resume_id"        json:"resume_id"`
	Company          *string    `db:"company"          json:"company"`
	Title            *string    `db:"title"            json:"title"`
	StartDate        *time.Time `db:"start_date"       json:"start_date"`
	EndDate          *time.Time `db:"end_date"         json:"end_date"`
	Responsibilities *string    `db:"responsibilities" json:"responsibilities"`
}

// Education is one education entry, bulk-inserted alongside its resume.
type Education struct {
	ID             int64     `db:"id"              json:"id"`
	ResumeID       uuid.UUID `db:"resume_id"       json:"resume_id"`
	Degree         *string   `db:"degree"          json:"degree"`
	Institution    *string   `db:"institution"     json:"institution"`
	GraduationYear *int      `db:"graduation_year" json:"graduation_year"`
}

// ResumeExtraction mirrors the JSON object the model is instructed to emit
// for a resume. Unknown keys are dropped and missing keys stay nil; the
// persistence step maps nils to NULL columns.
type ResumeExtraction struct {
	Name               *string                `json:"name"`
	Phone              *string                `json:"phone"`
	Email              *string                `json:"email"`
	MoreContactDetails *string                `json:"more_contact_details"`
	Nationalities      *string                `json:"nationalities"`
	Position           *string                `json:"position"`
	Skills             []string               `json:"skills"`
	Experiences        []ExperienceExtraction `json:"experiences"`
	Educations         []EducationExtraction  `json:"educations"`
}

type ExperienceExtraction struct {
	Company          *string `json:"company"`
	Title            *string `json:"title"`
	StartDate        *string `json:"start_date"`
	EndDate          *string `json:"end_date"`
	Responsibilities *string `json:"responsibilities"`
}

type EducationExtraction struct {
	Degree         *string `json:"degree"`
	Institution    *string `json:"institution"`
	GraduationYear any     `json:"graduation_year"` // models emit numbers or strings here
}
