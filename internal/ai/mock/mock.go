// Package mock provides a configurable ModelClient for tests.
package mock

import (
	"context"

	"github.com/resumatch/resumatch/pkg/models"
)

// MockClient satisfies models.ModelClient for testing.
type MockClient struct {
	Name_        string
	GenerateFunc func(ctx context.Context, prompt, systemMessage string) (string, error)
	ReadyFunc    func(ctx context.Context) error
}

func (m *MockClient) Name() string { return m.Name_ }

func (m *MockClient) Generate(ctx context.Context, prompt, systemMessage string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

func (m *MockClient) Ready(ctx context.Context) error {
	if m.ReadyFunc != nil {
		return m.ReadyFunc(ctx)
	}
	return nil
}

// NewMockClient returns a MockClient that answers every prompt with the
// given canned response.
func NewMockClient(response string) *MockClient {
	return &MockClient{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, _, _ string) (string, error) {
			return response, nil
		},
	}
}

// NewFailingClient returns a MockClient whose Generate always returns the
// given error.
func NewFailingClient(err error) *MockClient {
	return &MockClient{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
	}
}

// NewRateLimitedClient returns a MockClient that always reports resource
// exhaustion.
func NewRateLimitedClient() *MockClient {
	return NewFailingClient(models.ErrRateLimited)
}

// NewNeverReadyClient returns a MockClient whose readiness probe always
// fails.
func NewNeverReadyClient() *MockClient {
	return &MockClient{
		Name_: "mock-never-ready",
		ReadyFunc: func(_ context.Context) error {
			return models.ErrProviderUnavailable
		},
	}
}

// Compile-time check that MockClient implements ModelClient.
var _ models.ModelClient = (*MockClient)(nil)
