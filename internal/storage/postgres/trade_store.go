package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	mint, bonding_curve, buyer, take_profit_pct,
	start_time, end_time, status,
	current_price, bought_price, bought_amount, sold_price, profit_pct
`

// Insert adds a new trade record. Returns ErrDuplicateKey if a record for
// the mint exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Mint, t.BondingCurve, t.Buyer, t.TakeProfitPct,
		t.StartTime, t.EndTime, t.Status,
		t.CurrentPrice, t.BoughtPrice, t.BoughtAmount, t.SoldPrice, t.ProfitPct,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Update replaces the record for t.Mint. Returns ErrNotFound if the mint has
// no record.
func (s *TradeStore) Update(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trades SET
			bonding_curve = $2, buyer = $3, take_profit_pct = $4,
			start_time = $5, end_time = $6, status = $7,
			current_price = $8, bought_price = $9, bought_amount = $10,
			sold_price = $11, profit_pct = $12
		WHERE mint = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		t.Mint, t.BondingCurve, t.Buyer, t.TakeProfitPct,
		t.StartTime, t.EndTime, t.Status,
		t.CurrentPrice, t.BoughtPrice, t.BoughtAmount, t.SoldPrice, t.ProfitPct,
	)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByMint retrieves the record for a mint. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by mint: %w", err)
	}
	return t, nil
}

// GetActive retrieves all records in active status, ordered by start time ASC.
func (s *TradeStore) GetActive(ctx context.Context) ([]*domain.TradeRecord, error) {
	return s.GetByStatus(ctx, domain.StatusActive)
}

// GetByStatus retrieves all records in the given status, ordered by start
// time ASC.
func (s *TradeStore) GetByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status = $1
		ORDER BY start_time ASC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("get trades by status: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans a single row into a TradeRecord.
func scanTrade(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord

	err := row.Scan(
		&t.Mint, &t.BondingCurve, &t.Buyer, &t.TakeProfitPct,
		&t.StartTime, &t.EndTime, &t.Status,
		&t.CurrentPrice, &t.BoughtPrice, &t.BoughtAmount, &t.SoldPrice, &t.ProfitPct,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTrades scans multiple rows into a slice of TradeRecord.
func scanTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
