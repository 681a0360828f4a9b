package source

import (
	"context"
	"sync"
)

type mockResult struct {
	sample Sample
	err    error
}

// MockSource is a scripted Source for pipeline tests. Queued results
// are returned in order; when the queue is empty Next blocks until the
// context is cancelled or more results are pushed.
type MockSource struct {
	name    string
	results chan mockResult

	mu     sync.Mutex
	resets int
	closed bool
}

// NewMockSource creates a mock with room for queued results.
func NewMockSource(name string) *MockSource {
	return &MockSource{
		name:    name,
		results: make(chan mockResult, 64),
	}
}

// Push queues a sample for a future Next call.
func (m *MockSource) Push(sample Sample) {
	m.results <- mockResult{sample: sample}
}

// Fail queues an error for a future Next call.
func (m *MockSource) Fail(err error) {
	m.results <- mockResult{err: err}
}

// Resets reports how many times Reset has been called.
func (m *MockSource) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSource) Name() string { return m.name }

func (m *MockSource) Next(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case r := <-m.results:
		return r.sample, r.err
	}
}

func (m *MockSource) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
