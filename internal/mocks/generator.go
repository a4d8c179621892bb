package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/provider"
)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// ProviderName is returned by Name.
	ProviderName string

	// GenerateFn overrides the default Result and Err when set.
	GenerateFn func(ctx context.Context, req generation.Request) (*generation.Result, error)

	// States are reported to the context's state observer before returning.
	States []provider.State

	Result *generation.Result
	Err    error

	mu       sync.Mutex
	requests []generation.Request
}

var _ generation.Generator = (*MockGenerator)(nil)

// Name implements generation.Generator.
func (m *MockGenerator) Name() string { return m.ProviderName }

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if notify := provider.StateObserver(ctx); notify != nil {
		for _, s := range m.States {
			notify(s)
		}
	}

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	return m.Result, m.Err
}

// Calls returns how many times Generate was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the requests passed to Generate.
func (m *MockGenerator) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.requests...)
}

// NewMockGeneratorWithResult creates a MockGenerator for name that succeeds
// with a single output at url.
func NewMockGeneratorWithResult(name, url string) *MockGenerator {
	return &MockGenerator{
		ProviderName: name,
		States:       []provider.State{provider.StateSubmitted, provider.StatePolling, provider.StateSucceeded},
		Result: &generation.Result{
			Provider: name,
			Handle:   "mock-handle",
			Outputs:  []generation.Asset{{URL: url}},
		},
	}
}

// NewMockGeneratorWithError creates a MockGenerator for name that fails with err.
func NewMockGeneratorWithError(name string, err error) *MockGenerator {
	return &MockGenerator{
		ProviderName: name,
		States:       []provider.State{provider.StateSubmitted, provider.StateFailed},
		Err:          err,
	}
}
