package graph

import (
	"context"
	"sync"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// MockProvider is an in-memory Provider implementation for testing.
// Configure the function fields to control behavior; unset fields return
// empty results. Calls are recorded for assertions.
type MockProvider struct {
	mu sync.Mutex

	RunQueryFunc       func(ctx context.Context, query string, params map[string]any) ([]Row, error)
	SearchByNameFunc   func(ctx context.Context, term string, limit int) ([]NodeSummary, error)
	DependenciesOfFunc func(ctx context.Context, nodeID string, maxHops int) ([]string, error)

	RunQueryCalls []MockQueryCall
	Closed        bool
}

// MockQueryCall records one RunQuery invocation.
type MockQueryCall struct {
	Query  string
	Params map[string]any
}

// RunQuery records the call, applies the read-only guard, then delegates.
func (m *MockProvider) RunQuery(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.RunQueryCalls = append(m.RunQueryCalls, MockQueryCall{Query: query, Params: params})
	m.mu.Unlock()

	if m.RunQueryFunc != nil {
		return m.RunQueryFunc(ctx, query, params)
	}
	return []Row{}, nil
}

// SearchByName delegates to SearchByNameFunc or returns empty.
func (m *MockProvider) SearchByName(ctx context.Context, term string, limit int) ([]NodeSummary, error) {
	if m.SearchByNameFunc != nil {
		return m.SearchByNameFunc(ctx, term, limit)
	}
	return []NodeSummary{}, nil
}

// DependenciesOf delegates to DependenciesOfFunc or returns empty.
func (m *MockProvider) DependenciesOf(ctx context.Context, nodeID string, maxHops int) ([]string, error) {
	if m.DependenciesOfFunc != nil {
		return m.DependenciesOfFunc(ctx, nodeID, maxHops)
	}
	return []string{}, nil
}

// Health always reports healthy.
func (m *MockProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock")
}

// Close marks the provider closed.
func (m *MockProvider) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
