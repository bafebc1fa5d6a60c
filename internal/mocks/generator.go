package mocks

import (
	"context"
	"sync"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, req generation.Request) (*generation.Image, error)

	mu       sync.Mutex
	image    *generation.Image
	err      error
	requests []generation.Request
}

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Image, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn, image, err := m.GenerateFn, m.image, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if image != nil {
		return image, nil
	}
	return echo(req)
}

// echo returns the last image part of the request, which is the job's own
// input for every tool.
func echo(req generation.Request) (*generation.Image, error) {
	for i := len(req.Parts) - 1; i >= 0; i-- {
		if p := req.Parts[i]; p.IsImage() {
			return &generation.Image{Data: p.Data, MIMEType: p.MIMEType}, nil
		}
	}
	return nil, generation.ErrNoImage
}

// NewEchoGenerator creates a MockGenerator that answers with the request's
// primary image.
func NewEchoGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewMockGeneratorWithImage creates a MockGenerator that returns img
func NewMockGeneratorWithImage(img *generation.Image) *MockGenerator {
	return &MockGenerator{image: img}
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{err: err}
}

// SetErr makes later calls fail with err; nil restores the default answer.
func (m *MockGenerator) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Generate was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockGenerator) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generation.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}
