// Package memory provides in-memory store implementations used by tests and
// by runs that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by mint
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Insert adds a new trade record. Returns ErrDuplicateKey if a record for
// the mint exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *t
	s.data[t.Mint] = &recordCopy
	return nil
}

// Update replaces the record for t.Mint. Returns ErrNotFound if the mint has
// no record.
func (s *TradeStore) Update(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; !exists {
		return storage.ErrNotFound
	}

	recordCopy := *t
	s.data[t.Mint] = &recordCopy
	return nil
}

// GetByMint retrieves the record for a mint. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByMint(_ context.Context, mint string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *t
	return &recordCopy, nil
}

// GetActive retrieves all records in active status, ordered by start time ASC.
func (s *TradeStore) GetActive(ctx context.Context) ([]*domain.TradeRecord, error) {
	return s.GetByStatus(ctx, domain.StatusActive)
}

// GetByStatus retrieves all records in the given status, ordered by start
// time ASC.
func (s *TradeStore) GetByStatus(_ context.Context, status domain.TradeStatus) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.Status == status {
			recordCopy := *t
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime < result[j].StartTime
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TradeStore = (*TradeStore)(nil)
