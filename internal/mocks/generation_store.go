package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/store"
)

// MockGenerationStore is an in-memory store.GenerationStore for testing.
type MockGenerationStore struct {
	// CreateErr, when set, is returned by every Create call
	CreateErr error
	// ListErr, when set, is returned by every ListRecent call
	ListErr error
	// CreateFn, when set, runs before every Create and may block or fail it
	CreateFn func(ctx context.Context, record *store.GenerationRecord) error

	mu      sync.Mutex
	records []*store.GenerationRecord
}

// Compile-time check that MockGenerationStore implements store.GenerationStore.
var _ store.GenerationStore = (*MockGenerationStore)(nil)

// Create implements store.GenerationStore.
func (m *MockGenerationStore) Create(ctx context.Context, record *store.GenerationRecord) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, record); err != nil {
			return err
		}
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if record.TaskID != "" {
		for _, existing := range m.records {
			if existing.TaskID == record.TaskID {
				return store.ErrDuplicate
			}
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

// GetByTaskID implements store.GenerationStore.
func (m *MockGenerationStore) GetByTaskID(_ context.Context, taskID string) (*store.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.TaskID == taskID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, store.ErrGenerationNotFound
}

// ListRecent implements store.GenerationStore.
func (m *MockGenerationStore) ListRecent(_ context.Context, limit int) ([]*store.GenerationRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := make([]*store.GenerationRecord, len(m.records))
	copy(sorted, m.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Records returns everything stored so far, in insertion order.
func (m *MockGenerationStore) Records() []*store.GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.GenerationRecord(nil), m.records...)
}
