package clickhouse

import (
	"context"
	"fmt"

	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
// Points are append-only observations, which fits a MergeTree table with no
// uniqueness enforcement.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Append adds one observed price point for a mint.
func (s *PriceHistoryStore) Append(ctx context.Context, p *domain.PricePoint) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO price_history (mint, timestamp_ms, price_sol, profit_pct)
		VALUES (?, ?, ?, ?)
	`, p.Mint, p.TimestampMs, p.PriceSOL, p.ProfitPct)
	if err != nil {
		return fmt.Errorf("append price point: %w", err)
	}
	return nil
}

// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
func (s *PriceHistoryStore) GetByMint(ctx context.Context, mint string) ([]*domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT mint, timestamp_ms, price_sol, profit_pct
		FROM price_history
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("get price points by mint: %w", err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive).
func (s *PriceHistoryStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT mint, timestamp_ms, price_sol, profit_pct
		FROM price_history
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("get price points by time range: %w", err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

type pointRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPoints(rows pointRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Mint, &p.TimestampMs, &p.PriceSOL, &p.ProfitPct); err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
