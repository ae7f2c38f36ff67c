package agent

import "context"

// MockRunner is a configurable Runner for tests.
type MockRunner struct {
	RunFunc  func(ctx context.Context, req Request) (*Result, error)
	RunCalls []Request
}

func (m *MockRunner) Run(ctx context.Context, req Request) (*Result, error) {
	m.RunCalls = append(m.RunCalls, req)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}
	return &Result{Text: "ok"}, nil
}
