package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a TaskStore held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*TaskRecord
	now     func() time.Time
}

var _ TaskStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*TaskRecord),
		now:     time.Now,
	}
}

// SaveTask implements TaskStore. The record starts with the task's own status.
func (s *MemoryStore) SaveTask(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[task.ID()]; exists {
		return fmt.Errorf("task %s already exists", task.ID())
	}
	now := s.now()
	s.records[task.ID()] = &TaskRecord{
		Task:      task,
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateTaskStatus implements TaskStore.
func (s *MemoryStore) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	rec.Status = status
	rec.Error = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

// GetTask implements TaskStore. The returned record is a copy.
func (s *MemoryStore) GetTask(_ context.Context, taskID uuid.UUID) (*TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	out := *rec
	return &out, nil
}

// DeleteFinishedBefore implements TaskStore.
func (s *MemoryStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.Status.Finished() && rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
