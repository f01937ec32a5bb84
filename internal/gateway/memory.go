package gateway

import (
	"context"
	"sort"
	"sync"

	"dealercrm/internal/models"
)

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	records []models.BackupRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) List(_ context.Context, limit int) ([]models.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.BackupRecord, n)
	copy(out, m.records[:n])
	return out, nil
}

func (m *MemoryRepository) Latest(_ context.Context) (*models.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	rec := m.records[0]
	return &rec, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*models.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) Insert(_ context.Context, rec models.BackupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	sort.SliceStable(m.records, func(i, j int) bool {
		a, b := m.records[i], m.records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return nil
}

func (m *MemoryRepository) Prune(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) <= keep {
		return 0, nil
	}
	removed := int64(len(m.records) - keep)
	m.records = m.records[:keep]
	return removed, nil
}

func (m *MemoryRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
