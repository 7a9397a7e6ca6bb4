// Package gorm provides GORM-based persistence for the lookup history.
package gorm

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/thebtf/controlnotes/pkg/models"
)

// HistoryStore provides lookup-history database operations.
// Entries are append-only.
type HistoryStore struct {
	store   *Store
	ensured atomic.Bool
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{store: store}
}

// EnsureSchema creates the history table if it is absent. Safe to call on
// every write.
func (s *HistoryStore) EnsureSchema(ctx context.Context) error {
	if err := runMigrations(s.store.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.ensured.Store(true)
	return nil
}

// Append inserts one entry and returns its row ID. The entry's ID is set.
func (s *HistoryStore) Append(ctx context.Context, entry *models.HistoryEntry) (int64, error) {
	if !s.ensured.Load() {
		if err := s.EnsureSchema(ctx); err != nil {
			return 0, err
		}
	}

	row := requestFromEntry(entry)
	if err := s.store.DB.WithContext(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	entry.CreatedAtEpoch = row.CreatedAtEpoch
	return row.ID, nil
}

// Recent returns at most limit entries, most recent first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		return []*models.HistoryEntry{}, nil
	}
	var rows []Request
	err := s.store.DB.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	return toEntries(rows), nil
}

// FindByControl returns every entry for the control, in insertion order.
func (s *HistoryStore) FindByControl(ctx context.Context, control string) ([]*models.HistoryEntry, error) {
	var rows []Request
	err := s.store.DB.WithContext(ctx).
		Where("control = ?", control).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query history by control: %w", err)
	}
	return toEntries(rows), nil
}

// All returns every entry in insertion order.
func (s *HistoryStore) All(ctx context.Context) ([]*models.HistoryEntry, error) {
	var rows []Request
	if err := s.store.DB.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return toEntries(rows), nil
}

// Count returns the number of stored entries.
func (s *HistoryStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.store.DB.WithContext(ctx).Model(&Request{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
