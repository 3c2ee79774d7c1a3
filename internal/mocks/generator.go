package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/generation"
)

// MockGateway implements generation.Gateway for testing.
type MockGateway struct {
	// SubmitFn allows test cases to mock the Submit behavior
	SubmitFn func(ctx context.Context, req domain.GenerationRequest) (generation.TaskHandle, error)

	// StatusFn allows test cases to mock the Status behavior
	StatusFn func(ctx context.Context, handle generation.TaskHandle) (generation.TaskState, error)

	// Default response values
	SubmitErr error
	States    []generation.TaskState
	StatusErr error

	mu       sync.Mutex
	requests []domain.GenerationRequest
	handles  []generation.TaskHandle
}

// Compile-time check that MockGateway implements generation.Gateway.
var _ generation.Gateway = (*MockGateway)(nil)

// Submit implements generation.Submitter. Without SubmitFn it returns
// task-1, task-2, ... or SubmitErr.
func (m *MockGateway) Submit(ctx context.Context, req domain.GenerationRequest) (generation.TaskHandle, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	return generation.TaskHandle(fmt.Sprintf("task-%d", n)), nil
}

// Status implements generation.StatusChecker. Without StatusFn it walks
// through States, repeating the last one, with the handle filled in.
func (m *MockGateway) Status(ctx context.Context, handle generation.TaskHandle) (generation.TaskState, error) {
	m.mu.Lock()
	m.handles = append(m.handles, handle)
	n := len(m.handles)
	m.mu.Unlock()

	if m.StatusFn != nil {
		return m.StatusFn(ctx, handle)
	}
	if m.StatusErr != nil {
		return generation.TaskState{}, m.StatusErr
	}
	if len(m.States) == 0 {
		return generation.InProgress(handle), nil
	}

	idx := n - 1
	if idx >= len(m.States) {
		idx = len(m.States) - 1
	}
	state := m.States[idx]
	state.Handle = handle
	return state, nil
}

// SubmitCount returns how many times Submit was called.
func (m *MockGateway) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// StatusCount returns how many times Status was called.
func (m *MockGateway) StatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Requests returns every request passed to Submit.
func (m *MockGateway) Requests() []domain.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GenerationRequest(nil), m.requests...)
}

// NewMockGatewayResolving creates a MockGateway whose tasks stay in progress
// for inProgress queries and then succeed with imageURL.
func NewMockGatewayResolving(inProgress int, imageURL string) *MockGateway {
	states := make([]generation.TaskState, 0, inProgress+1)
	for i := 0; i < inProgress; i++ {
		states = append(states, generation.InProgress(""))
	}
	states = append(states, generation.Succeeded("", generation.Result{ImageURL: imageURL, Total: 1}))
	return &MockGateway{States: states}
}

// NewMockGatewayWithSubmitError creates a MockGateway whose Submit always fails.
func NewMockGatewayWithSubmitError(err error) *MockGateway {
	return &MockGateway{SubmitErr: err}
}
