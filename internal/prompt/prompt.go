// Package prompt builds the model prompts for extraction and scoring.
// Templates are embedded so a binary carries everything it needs.
package prompt

import (
	"strings"

	_ "embed"
)

//go:embed templates/resume.md
var resumeTemplate string

//go:embed templates/job_posting.md
var jobPostingTemplate string

//go:embed templates/compatibility.md
var compatibilityTemplate string

const (
	// ResumeSystemMessage primes the model for resume parsing.
	ResumeSystemMessage = "You are a bot which professionally parses resumes into JSON. " +
		"Extract relevant information from the resume text and fill the provided JSON template. " +
		"Ensure all keys in the template are present in the output, even if the value is empty or unknown. " +
		"If a specific piece of information is not found in the text, use null as the value."

	// JobPostingSystemMessage primes the model for job description parsing.
	JobPostingSystemMessage = "You are a bot that professionally parses job descriptions into JSON. " +
		"Extract relevant information from the job description text and fill the provided JSON template. " +
		"Ensure all keys in the template are present in the output, even if the value is empty or unknown. " +
		"If a specific piece of information is not found in the text, use null as the value."

	// CompatibilitySystemMessage primes the model for bidirectional scoring.
	CompatibilitySystemMessage = "You are a bot which professionally calculates the ATS score of a resume " +
		"and a job description and finds the compatibility between them. " +
		"Ensure all keys in the template are present in the output, even if the value is 0."
)

// Resume returns the extraction prompt for a resume document.
func Resume(documentText string) string {
	return strings.ReplaceAll(resumeTemplate, "{{DOCUMENT_TEXT}}", documentText)
}

// JobPosting returns the extraction prompt for a job posting document.
func JobPosting(documentText string) string {
	return strings.ReplaceAll(jobPostingTemplate, "{{DOCUMENT_TEXT}}", documentText)
}

// Compatibility returns the scoring prompt for a resume/posting pair. Both
// arguments are the JSON payloads persisted at extraction time.
func Compatibility(resumeJSON, postingJSON string) string {
	p := strings.ReplaceAll(compatibilityTemplate, "{{RESUME_JSON}}", resumeJSON)
	return strings.ReplaceAll(p, "{{POSTING_JSON}}", postingJSON)
}
