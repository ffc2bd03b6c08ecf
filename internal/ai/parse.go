package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/resumatch/resumatch/pkg/models"
)

// ExtractJSON strips the markdown code fences models often wrap around JSON
// output. Returns the inner text untouched when no fences are present.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// ParseResumeExtraction decodes a model response into a resume extraction.
// The cleaned JSON is returned alongside so callers can persist the payload
// exactly as parsed.
func ParseResumeExtraction(raw string) (*models.ResumeExtraction, json.RawMessage, error) {
	cleaned := ExtractJSON(raw)
	var ex models.ResumeExtraction
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	return &ex, json.RawMessage(cleaned), nil
}

// ParseJobPostingExtraction decodes a model response into a job posting
// extraction.
func ParseJobPostingExtraction(raw string) (*models.JobPostingExtraction, json.RawMessage, error) {
	cleaned := ExtractJSON(raw)
	var ex models.JobPostingExtraction
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	return &ex, json.RawMessage(cleaned), nil
}

// ParseCompatibilityScores decodes a model response into the bidirectional
// score pair. Both directions must be present and within [0, 100].
func ParseCompatibilityScores(raw string) (*models.CompatibilityScores, error) {
	cleaned := ExtractJSON(raw)
	var scores models.CompatibilityScores
	if err := json.Unmarshal([]byte(cleaned), &scores); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	if scores.ResumeCompatibility == nil || scores.PostingCompatibility == nil {
		return nil, fmt.Errorf("%w: missing compatibility score", models.ErrInvalidResponse)
	}
	if !validScore(*scores.ResumeCompatibility) || !validScore(*scores.PostingCompatibility) {
		return nil, fmt.Errorf("%w: score out of range", models.ErrInvalidResponse)
	}
	return &scores, nil
}

func validScore(s float64) bool {
	return s >= 0 && s <= 100
}
