package schema

import (
	"context"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// MockIndex is a configurable VectorIndex for tests.
type MockIndex struct {
	SearchFunc  func(ctx context.Context, query string, topK int) ([]Element, error)
	SearchCalls []string
	Closed      bool
}

func (m *MockIndex) Search(ctx context.Context, query string, topK int) ([]Element, error) {
	m.SearchCalls = append(m.SearchCalls, query)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, topK)
	}
	return nil, nil
}

func (m *MockIndex) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock index")
}

func (m *MockIndex) Close() error {
	m.Closed = true
	return nil
}
