// Package models contains shared data models used across the resumatch codebase.
package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrRateLimited means the backend reported resource exhaustion. Work
	// hitting this is deferred, never marked failed.
	ErrRateLimited = errors.New("model backend rate limited")

	ErrProviderUnavailable = errors.New("model backend unavailable")
	ErrInvalidResponse     = errors.New("model backend returned invalid response")
)

// ModelClient is the core interface every text-generation backend must
// implement. Never call a vendor SDK directly, always inject this interface.
type ModelClient interface {
	// Generate sends a prompt plus system instruction and returns the raw
	// model output. A rate-limited backend returns ErrRateLimited.
	Generate(ctx context.Context, prompt, systemMessage string) (string, error)
	// Ready reports whether the backend can accept requests. Hosted APIs
	// return nil without a network round trip; local backends probe.
	Ready(ctx context.Context) error
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ModelSettings is the per-user model configuration read before each call.
type ModelSettings struct {
	UserID     uuid.UUID `db:"user_id"    json:"user_id"`
	Provider   string    `db:"provider"   json:"provider"`
	Model      string    `db:"model"      json:"model"`
	Credential string    `db:"credential" json:"-"`
}
