package historyrepo

import (
	"context"
	"sync"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

const defaultMemoryCapacity = 1000

// MemoryRepository keeps the most recent prediction records in a bounded ring for tests/dev.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  []prediction.Record
	capacity int
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRepository{capacity: capacity}
}

// Save implements prediction.HistoryRepository.
func (r *MemoryRepository) Save(_ context.Context, record prediction.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if overflow := len(r.records) - r.capacity; overflow > 0 {
		r.records = append(r.records[:0:0], r.records[overflow:]...)
	}
	return nil
}

// Recent implements prediction.HistoryRepository, newest first.
func (r *MemoryRepository) Recent(_ context.Context, limit int) ([]prediction.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]prediction.Record, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

var _ prediction.HistoryRepository = (*MemoryRepository)(nil)
