// Package monitor polls open positions and exits them when the take-profit
// threshold is crossed.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fpolica91/Solana-Bots/internal/curve"
	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/observability"
	"github.com/fpolica91/Solana-Bots/internal/storage"
	"github.com/fpolica91/Solana-Bots/internal/trader"
)

// DefaultInterval is the wait between monitor ticks.
const DefaultInterval = 15 * time.Second

// ActiveSet lets the monitor drop a mint it sold from the running trade set.
type ActiveSet interface {
	Remove(mint string)
}

// Options configures a Monitor.
type Options struct {
	Store    storage.TradeStore
	History  storage.PriceHistoryStore // optional
	Reader   *curve.Reader
	Executor trader.Executor
	Active   ActiveSet // optional

	Interval time.Duration
	Logger   *logrus.Logger
}

// Monitor re-prices every active trade on a fixed interval and triggers the
// take-profit exit.
type Monitor struct {
	store   storage.TradeStore
	history storage.PriceHistoryStore
	reader  *curve.Reader
	exec    trader.Executor
	active  ActiveSet

	interval time.Duration
	log      *logrus.Logger
}

// New creates a Monitor. Store, Reader and Executor are required.
func New(opts Options) (*Monitor, error) {
	if opts.Store == nil {
		return nil, errors.New("monitor: trade store is required")
	}
	if opts.Reader == nil {
		return nil, errors.New("monitor: curve reader is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("monitor: executor is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Monitor{
		store:    opts.Store,
		history:  opts.History,
		reader:   opts.Reader,
		exec:     opts.Executor,
		active:   opts.Active,
		interval: opts.Interval,
		log:      opts.Logger,
	}, nil
}

// Run ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick re-prices every active record once. One bad mint never fails the
// tick; it is skipped and retried on the next one.
func (m *Monitor) Tick(ctx context.Context) {
	observability.RecordMonitorTick()

	records, err := m.store.GetActive(ctx)
	if err != nil {
		m.log.WithError(err).Error("load active trades")
		return
	}

	for _, record := range records {
		m.observe(ctx, record)
	}
}

// observe refreshes one record's price and exits the position when the
// profit threshold is crossed.
func (m *Monitor) observe(ctx context.Context, record *domain.TradeRecord) {
	price, ok, err := m.reader.Price(ctx, record.Mint)
	if err != nil || !ok {
		m.log.WithField("mint", record.Mint).WithError(err).Debug("snapshot unavailable, skipping")
		return
	}
	if record.BoughtPrice <= 0 {
		m.log.WithField("mint", record.Mint).Warn("record has no bought price, skipping")
		return
	}

	profitPct := (price - record.BoughtPrice) / record.BoughtPrice * 100

	record.CurrentPrice = price
	record.ProfitPct = profitPct
	if err := m.store.Update(ctx, record); err != nil {
		m.log.WithField("mint", record.Mint).WithError(err).Error("persist refreshed price")
	}
	m.appendHistory(ctx, record.Mint, price, profitPct)

	m.log.WithFields(logrus.Fields{
		"mint":   record.Mint,
		"price":  price,
		"profit": profitPct,
		"target": record.TakeProfitPct,
	}).Debug("position observed")

	if profitPct >= record.TakeProfitPct {
		m.exit(ctx, record)
	}
}

// exit sells the full position and marks the record completed.
func (m *Monitor) exit(ctx context.Context, record *domain.TradeRecord) {
	m.log.WithFields(logrus.Fields{
		"mint":   record.Mint,
		"profit": record.ProfitPct,
	}).Info("take-profit threshold crossed")

	res, err := m.exec.Sell(ctx, record.Mint, 100)
	if err != nil {
		m.log.WithField("mint", record.Mint).WithError(err).Warn("take-profit sell failed")
		return
	}

	now := time.Now().UnixMilli()
	record.Status = domain.StatusCompleted
	record.EndTime = &now
	record.SoldPrice = &res.Price
	record.CurrentPrice = res.Price
	record.ProfitPct = (res.Price - record.BoughtPrice) / record.BoughtPrice * 100
	if err := m.store.Update(ctx, record); err != nil {
		m.log.WithField("mint", record.Mint).WithError(err).Error("persist completed trade")
	}

	if m.active != nil {
		m.active.Remove(record.Mint)
	}
	observability.RecordTakeProfitExit()
}

func (m *Monitor) appendHistory(ctx context.Context, mint string, price, profitPct float64) {
	if m.history == nil {
		return
	}
	point := &domain.PricePoint{
		Mint:        mint,
		PriceSOL:    price,
		ProfitPct:   profitPct,
		TimestampMs: time.Now().UnixMilli(),
	}
	if err := m.history.Append(ctx, point); err != nil {
		m.log.WithField("mint", mint).WithError(err).Warn("append price history")
	}
}
