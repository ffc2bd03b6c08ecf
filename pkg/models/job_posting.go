package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobPosting is the structured entity materialized from a job-posting
// WorkDocument.
type JobPosting struct {
	ID                      uuid.UUID       `db:"id"                        json:"id"`
	UserID                  uuid.UUID       `db:"user_id"                   json:"user_id"`
	Title                   *string         `db:"title"                     json:"title"`
	Position                *string         `db:"position"                  json:"position"`
	Company                 *string         `db:"company"                   json:"company"`
	Phone                   *string         `db:"phone"                     json:"phone"`
	Email                   *string         `db:"email"                     json:"email"`
	MoreContactDetails      *string         `db:"more_contact_details"      json:"more_contact_details"`
	Description             *string         `db:"description"               json:"description"`
	MainTechnologies        *string         `db:"main_technologies"         json:"main_technologies"`
	RequiredSkills          *string         `db:"required_skills"           json:"required_skills"`
	Responsibilities        *string         `db:"responsibilities"          json:"responsibilities"`
	RequiredQualification   *string         `db:"required_qualification"    json:"required_qualification"`
	PreferredQualification  *string         `db:"preferred_qualification"   json:"preferred_qualification"`
	MinExperienceInMonths   *int            `db:"min_experience_in_months"  json:"min_experience_in_months"`
	MaxExperienceInMonths   *int            `db:"max_experience_in_months"  json:"max_experience_in_months"`
	Salary                  *string         `db:"salary"                    json:"salary"`
	Address                 *string         `db:"address"                   json:"address"`
	City                    *string         `db:"city"                      json:"city"`
	State                   *string         `db:"state"                     json:"state"`
	Country                 *string         `db:"country"                   json:"country"`
	PostalCode              *string         `db:"postal_code"               json:"postal_code"`
	IsApplicableForFreshers bool            `db:"is_applicable_for_freshers" json:"is_applicable_for_freshers"`
	TotalPaidLeaves         *int            `db:"total_paid_leaves"         json:"total_paid_leaves"`
	WeeklyWorkingDays       *int            `db:"weekly_working_days"       json:"weekly_working_days"`
	OtherBenefits           *string         `db:"other_benefits"            json:"other_benefits"`
	FilePath                string          `db:"file_path"                 json:"file_path"`
	Payload                 json.RawMessage `db:"payload"                   json:"payload"`
	CreatedAt               time.Time       `db:"created_at"                json:"created_at"`
}

// JobPostingExtraction mirrors the JSON object the model is instructed to
// emit for a job posting.
type JobPostingExtraction struct {
	Title                   *string  `json:"title"`
	Position                *string  `json:"position"`
	Company                 *string  `json:"company"`
	Phone                   *string  `json:"phone"`
	Email                   *string  `json:"email"`
	MoreContactDetails      *string  `json:"more_contact_details"`
	Description             *string  `json:"description"`
	MainTechnologies        []string `json:"main_technologies"`
	RequiredSkills          []string `json:"required_skills"`
	Responsibilities        []string `json:"responsibilities"`
	RequiredQualification   *string  `json:"required_qualification"`
	PreferredQualification  *string  `json:"preferred_qualification"`
	MinExperienceInMonths   *int     `json:"min_experience_in_months"`
	MaxExperienceInMonths   *int     `json:"max_experience_in_months"`
	Salary                  *string  `json:"salary"`
	Address                 *string  `json:"address"`
	City                    *string  `json:"city"`
	State                   *string  `json:"state"`
	Country                 *string  `json:"country"`
	PostalCode              *string  `json:"postal_code"`
	IsApplicableForFreshers *bool    `json:"is_applicable_for_freshers"`
	TotalPaidLeaves         *int     `json:"total_paid_leaves"`
	WeeklyWorkingDays       *int     `json:"weekly_working_days"`
	OtherBenefits           *string  `json:"other_benefits"`
}
