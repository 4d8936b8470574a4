package storage

import (
	"context"

	"github.com/fpolica91/Solana-Bots/internal/domain"
)

// TradeStore provides access to trade record storage.
type TradeStore interface {
	// Insert adds a new trade record. Returns ErrDuplicateKey if a record
	// for the mint exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// Update replaces the record for t.Mint. Returns ErrNotFound if the
	// mint has no record.
	Update(ctx context.Context, t *domain.TradeRecord) error

	// GetByMint retrieves the record for a mint. Returns ErrNotFound if
	// not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TradeRecord, error)

	// GetActive retrieves all records in active status, ordered by start
	// time ASC.
	GetActive(ctx context.Context) ([]*domain.TradeRecord, error)

	// GetByStatus retrieves all records in the given status, ordered by
	// start time ASC.
	GetByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.TradeRecord, error)
}

// PriceHistoryStore provides access to per-position price history storage.
type PriceHistoryStore interface {
	// Append adds one observed price point for a mint.
	Append(ctx context.Context, p *domain.PricePoint) error

	// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a mint within [start, end]
	// milliseconds (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PricePoint, error)
}
