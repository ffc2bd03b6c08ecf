// Package ai constructs model clients from per-user settings and parses
// their output.
package ai

import (
	"context"
	"fmt"

	"github.com/resumatch/resumatch/internal/ai/gemini"
	"github.com/resumatch/resumatch/internal/ai/ollama"
	"github.com/resumatch/resumatch/internal/ai/openai"
	"github.com/resumatch/resumatch/internal/config"
	"github.com/resumatch/resumatch/pkg/models"
)

// Factory builds ModelClients from stored per-user settings. Settings are
// read fresh before every piece of work, so a settings change takes effect
// on the next scan without a restart.
type Factory struct {
	cfg config.AIConfig
}

func NewFactory(cfg config.AIConfig) *Factory {
	return &Factory{cfg: cfg}
}

// ClientFor returns the client matching the user's provider settings.
func (f *Factory) ClientFor(ctx context.Context, settings *models.ModelSettings) (models.ModelClient, error) {
	switch settings.Provider {
	case models.ProviderGemini:
		return gemini.NewClient(ctx, settings.Credential, settings.Model)
	case models.ProviderOpenAI:
		return openai.NewClient(settings.Credential, settings.Model), nil
	case models.ProviderOllama:
		return ollama.NewClient(f.cfg.OllamaBaseURL, settings.Model), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q: must be one of gemini, openai, ollama", settings.Provider)
	}
}
