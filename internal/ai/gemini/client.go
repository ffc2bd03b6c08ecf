// Package gemini implements models.ModelClient on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/resumatch/resumatch/pkg/models"
	"google.golang.org/genai"
)

// Client wraps the Google GenAI SDK.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client using the stored per-user credential.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Name() string { return models.ProviderGemini }

// Ready returns nil: the hosted API carries no useful liveness probe and a
// dead credential surfaces on the first Generate anyway.
func (c *Client) Ready(_ context.Context) error { return nil }

func (c *Client) Generate(ctx context.Context, prompt, systemMessage string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemMessage != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemMessage}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Code == http.StatusTooManyRequests:
				return "", fmt.Errorf("%w: %s", models.ErrRateLimited, apiErr.Message)
			case apiErr.Code >= 500:
				return "", fmt.Errorf("%w: %s", models.ErrProviderUnavailable, apiErr.Message)
			}
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimSpace(part.Text))
		}
	}

	output := strings.TrimSpace(b.String())
	if output == "" {
		return "", fmt.Errorf("%w: empty response", models.ErrInvalidResponse)
	}
	return output, nil
}

var _ models.ModelClient = (*Client)(nil)
