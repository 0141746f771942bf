package llm

import (
	"context"

	"github.com/dataclinic-ai/engine/pkg/models"
)

// MockModelClient is a configurable mock for testing model invocations.
// Set the function field to control behavior in tests.
type MockModelClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty response and nil error.
	CompleteFunc func(ctx context.Context, req Request) (*Response, error)

	// EndpointValue is returned by Endpoint. Defaults to "openrouter:mock-model".
	EndpointValue models.ModelEndpoint

	// Call tracking for verification
	CompleteCalls int
	Requests      []Request
}

// NewMockModelClient creates a new mock with sensible defaults.
func NewMockModelClient() *MockModelClient {
	return &MockModelClient{EndpointValue: "openrouter:mock-model"}
}

// Complete implements ModelClient.
func (m *MockModelClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Response{}, nil
}

// Endpoint implements ModelClient.
func (m *MockModelClient) Endpoint() models.ModelEndpoint {
	if m.EndpointValue == "" {
		return "openrouter:mock-model"
	}
	return m.EndpointValue
}

var _ ModelClient = (*MockModelClient)(nil)

// MockClientFactory hands out scripted clients per endpoint. Endpoints
// without a scripted client get a fresh default mock.
type MockClientFactory struct {
	// Clients maps endpoints to the client Create should return.
	Clients map[models.ModelEndpoint]ModelClient

	// CreateCalls records every endpoint Create was asked for, in order.
	CreateCalls []models.ModelEndpoint
}

// NewMockClientFactory creates an empty mock factory.
func NewMockClientFactory() *MockClientFactory {
	return &MockClientFactory{Clients: make(map[models.ModelEndpoint]ModelClient)}
}

// Create implements ClientFactory.
func (f *MockClientFactory) Create(endpoint models.ModelEndpoint, _ Credentials) ModelClient {
	f.CreateCalls = append(f.CreateCalls, endpoint)
	if c, ok := f.Clients[endpoint]; ok {
		return c
	}
	mock := NewMockModelClient()
	mock.EndpointValue = endpoint
	return mock
}

var _ ClientFactory = (*MockClientFactory)(nil)
