// Package trader runs the trade lifecycle: admission control over concurrent
// trades, the buy-settle-sell cycle per admitted mint, and terminal record
// bookkeeping.
package trader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/executor"
	"github.com/fpolica91/Solana-Bots/internal/feed"
	"github.com/fpolica91/Solana-Bots/internal/observability"
	"github.com/fpolica91/Solana-Bots/internal/retry"
	"github.com/fpolica91/Solana-Bots/internal/storage"
)

// Executor is the trade execution collaborator.
type Executor interface {
	Buy(ctx context.Context, mint string, spendLamports uint64) (*executor.BuyResult, error)
	Sell(ctx context.Context, mint string, fractionPct float64) (*executor.SellResult, error)
}

// Defaults for the lifecycle engine.
const (
	DefaultMaxConcurrent   = 2
	DefaultSettleDelay     = 30 * time.Second
	DefaultMaxSellAttempts = 10
	DefaultMaxTradeAge     = 15 * time.Minute
)

// DefaultSellRetryDelay is the fixed wait after a sell attempt that failed
// cleanly, e.g. the transaction landed with an error or the balance is not
// visible yet.
const DefaultSellRetryDelay = 5 * time.Second

// defaultSellBackoff paces sell attempts that errored, capped so a flapping
// RPC cannot stretch the cycle indefinitely.
var defaultSellBackoff = retry.Policy{
	MaxAttempts: DefaultMaxSellAttempts,
	BaseDelay:   2 * time.Second,
	MaxDelay:    10 * time.Second,
}

// Options configures a Manager.
type Options struct {
	Store    storage.TradeStore
	Executor Executor

	// Buyer is the wallet pubkey recorded on each trade.
	Buyer string

	// BuyAmountLamports is the spend per trade.
	BuyAmountLamports uint64

	// TakeProfitPct is the exit threshold recorded on each trade.
	TakeProfitPct float64

	// MaxConcurrent bounds trades executing network calls simultaneously.
	MaxConcurrent int64

	// SettleDelay is the wait between a confirmed buy and the first sell
	// attempt.
	SettleDelay time.Duration

	// MaxSellAttempts bounds the sell retry loop.
	MaxSellAttempts int

	// SellRetryDelay is the fixed wait between sell attempts that failed
	// cleanly on-chain. Errored attempts follow SellBackoff instead.
	SellRetryDelay time.Duration
	SellBackoff    *retry.Policy

	// MaxTradeAge bounds how long a mint may sit in the active set before
	// the stale sweep evicts it.
	MaxTradeAge time.Duration

	Logger *logrus.Logger
}

// Manager owns the active trade set and drives one goroutine per admitted
// mint through the buy-settle-sell cycle.
type Manager struct {
	store storage.TradeStore
	exec  Executor

	buyer             string
	buyAmountLamports uint64
	takeProfitPct     float64
	settleDelay       time.Duration
	maxSellAttempts   int
	sellRetryDelay    time.Duration
	sellBackoff       retry.Policy
	maxTradeAge       time.Duration

	// gate bounds system-wide concurrency; active enforces per-mint
	// exclusivity. A permit is acquired before any ledger call and
	// released on every exit path.
	gate *semaphore.Weighted

	mu     sync.Mutex
	active map[string]cycleHandle

	wg  sync.WaitGroup
	log *logrus.Logger
}

// New creates a Manager.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("trader: trade store is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("trader: executor is required")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.MaxSellAttempts <= 0 {
		opts.MaxSellAttempts = DefaultMaxSellAttempts
	}
	if opts.SellRetryDelay <= 0 {
		opts.SellRetryDelay = DefaultSellRetryDelay
	}
	if opts.SellBackoff == nil {
		opts.SellBackoff = &defaultSellBackoff
	}
	if opts.MaxTradeAge <= 0 {
		opts.MaxTradeAge = DefaultMaxTradeAge
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Manager{
		store:             opts.Store,
		exec:              opts.Executor,
		buyer:             opts.Buyer,
		buyAmountLamports: opts.BuyAmountLamports,
		takeProfitPct:     opts.TakeProfitPct,
		settleDelay:       opts.SettleDelay,
		maxSellAttempts:   opts.MaxSellAttempts,
		sellRetryDelay:    opts.SellRetryDelay,
		sellBackoff:       *opts.SellBackoff,
		maxTradeAge:       opts.MaxTradeAge,
		gate:              semaphore.NewWeighted(opts.MaxConcurrent),
		active:            make(map[string]cycleHandle),
		log:               opts.Logger,
	}, nil
}

// cycleHandle is one active set entry: when the cycle was admitted and how
// to cancel it.
type cycleHandle struct {
	admitted time.Time
	cancel   context.CancelFunc
}

// Admit starts a trade cycle for the event's mint. The second admission of a
// mint already in the active set observes feed.ErrAlreadyActive; it is never
// queued. The cycle itself runs on its own goroutine and suspends at the
// admission gate until a permit frees up.
func (m *Manager) Admit(ctx context.Context, ev feed.TokenEvent) error {
	cycleCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if _, exists := m.active[ev.Mint]; exists {
		m.mu.Unlock()
		cancel()
		return feed.ErrAlreadyActive
	}
	m.active[ev.Mint] = cycleHandle{admitted: time.Now(), cancel: cancel}
	m.mu.Unlock()

	observability.RecordAdmission()
	m.log.WithFields(logrus.Fields{"mint": ev.Mint, "curve": ev.BondingCurve}).Info("trade admitted")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.runCycle(cycleCtx, ev)
	}()
	return nil
}

// Remove drops a mint from the active set. The monitor calls this when it
// closes a position; cycle goroutines call it on every exit path.
func (m *Manager) Remove(mint string) {
	m.mu.Lock()
	delete(m.active, mint)
	m.mu.Unlock()
}

// IsActive reports whether a mint currently has a running trade.
func (m *Manager) IsActive(mint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[mint]
	return ok
}

// ActiveCount returns the size of the active trade set.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Wait blocks until all in-flight trade cycles finish. Call after cancelling
// the context passed to Admit.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// SweepStale cancels cycles admitted more than MaxTradeAge ago. The
// cancelled cycle unwinds through its own defers, which release the gate
// permit and drop the active entry; the mint stays unadmittable until then.
// Returns the cancelled mints.
func (m *Manager) SweepStale() []string {
	cutoff := time.Now().Add(-m.maxTradeAge)

	m.mu.Lock()
	var evicted []string
	var cancels []context.CancelFunc
	for mint, handle := range m.active {
		if handle.admitted.Before(cutoff) {
			evicted = append(evicted, mint)
			cancels = append(cancels, handle.cancel)
		}
	}
	m.mu.Unlock()

	for i, mint := range evicted {
		cancels[i]()
		m.log.WithField("mint", mint).Warn("stale trade cycle cancelled")
	}
	return evicted
}

// runCycle drives one mint from admission to a terminal record state. The
// gate permit and the active set entry are released unconditionally.
func (m *Manager) runCycle(ctx context.Context, ev feed.TokenEvent) {
	if err := m.gate.Acquire(ctx, 1); err != nil {
		m.Remove(ev.Mint)
		observability.RecordTradeEnd(false, 0)
		m.log.WithField("mint", ev.Mint).WithError(err).Debug("admission gate wait cancelled")
		return
	}
	defer m.gate.Release(1)
	defer m.Remove(ev.Mint)

	record := &domain.TradeRecord{
		Mint:          ev.Mint,
		BondingCurve:  ev.BondingCurve,
		Buyer:         m.buyer,
		TakeProfitPct: m.takeProfitPct,
		StartTime:     time.Now().UnixMilli(),
		Status:        domain.StatusPending,
	}
	if err := m.store.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Traded before; treat like a duplicate admission.
			observability.RecordRejection("already_traded")
			observability.RecordTradeEnd(false, 0)
			m.log.WithField("mint", ev.Mint).Debug("mint already has a trade record")
			return
		}
		observability.RecordTradeEnd(false, 0)
		m.log.WithField("mint", ev.Mint).WithError(err).Error("insert trade record")
		return
	}

	buy, err := m.exec.Buy(ctx, ev.Mint, m.buyAmountLamports)
	if err != nil {
		m.log.WithField("mint", ev.Mint).WithError(err).Warn("buy failed")
		m.finish(ctx, record, domain.StatusFailed)
		return
	}

	record.Status = domain.StatusActive
	record.BoughtPrice = buy.Price
	record.CurrentPrice = buy.Price
	record.BoughtAmount = float64(buy.TokensBought)
	if err := m.store.Update(ctx, record); err != nil {
		m.log.WithField("mint", ev.Mint).WithError(err).Error("mark trade active")
	}

	// Let the position settle before the first sell attempt. The monitor
	// may close the position meanwhile.
	select {
	case <-ctx.Done():
		m.log.WithField("mint", ev.Mint).Warn("cancelled holding position")
		m.finish(ctx, record, domain.StatusFailed)
		return
	case <-time.After(m.settleDelay):
	}

	sold, sell := m.sellWithRetries(ctx, record)
	if !sold {
		m.finish(ctx, record, domain.StatusFailed)
		return
	}
	if sell == nil {
		// The monitor closed the position and persisted the terminal
		// record; settle the gauge with the realized figure it wrote.
		profit := record.ProfitPct
		if closed := m.closedRecord(ctx, record.Mint); closed != nil {
			profit = closed.ProfitPct
		}
		observability.RecordTradeEnd(true, profit)
		return
	}
	record.SoldPrice = &sell.Price
	record.CurrentPrice = sell.Price
	if record.BoughtPrice > 0 {
		record.ProfitPct = (sell.Price - record.BoughtPrice) / record.BoughtPrice * 100
	}
	m.finish(ctx, record, domain.StatusCompleted)
}

// sellWithRetries attempts to liquidate the full position. Errored attempts
// back off exponentially; attempts that failed cleanly on-chain wait a short
// fixed delay. A position the monitor already closed counts as sold.
func (m *Manager) sellWithRetries(ctx context.Context, record *domain.TradeRecord) (bool, *executor.SellResult) {
	for attempt := 1; attempt <= m.maxSellAttempts; attempt++ {
		res, err := m.exec.Sell(ctx, record.Mint, 100)
		if err == nil {
			return true, res
		}

		delay := m.sellRetryDelay
		switch {
		case errors.Is(err, executor.ErrNothingToSell):
			if closed := m.closedRecord(ctx, record.Mint); closed != nil {
				m.log.WithField("mint", record.Mint).Info("position already closed by monitor")
				return true, nil
			}
			// Balance may not be visible yet right after the buy.
		case errors.Is(err, executor.ErrTransactionFailed):
			// Clean on-chain failure; a fresh submission may land.
		default:
			delay = m.sellBackoff.Delay(attempt + 1)
		}

		m.log.WithFields(logrus.Fields{
			"mint":    record.Mint,
			"attempt": attempt,
			"delay":   delay,
		}).WithError(err).Warn("sell attempt failed")

		if attempt == m.maxSellAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(delay):
		}
	}

	m.log.WithField("mint", record.Mint).Error("sell retries exhausted, still holding position")
	return false, nil
}

// closedRecord returns the persisted record when it reached completed,
// which happens when the monitor sold the position first.
func (m *Manager) closedRecord(ctx context.Context, mint string) *domain.TradeRecord {
	current, err := m.store.GetByMint(ctx, mint)
	if err != nil || current.Status != domain.StatusCompleted {
		return nil
	}
	return current
}

// finish persists the terminal state. A record the monitor already completed
// is left untouched.
func (m *Manager) finish(ctx context.Context, record *domain.TradeRecord, status domain.TradeStatus) {
	if status == domain.StatusFailed {
		if closed := m.closedRecord(ctx, record.Mint); closed != nil {
			observability.RecordTradeEnd(true, closed.ProfitPct)
			return
		}
	}

	now := time.Now().UnixMilli()
	record.Status = status
	record.EndTime = &now
	if err := m.store.Update(ctx, record); err != nil {
		m.log.WithField("mint", record.Mint).WithError(err).Error("persist terminal trade state")
	}

	completed := status == domain.StatusCompleted
	observability.RecordTradeEnd(completed, record.ProfitPct)
	m.log.WithFields(logrus.Fields{
		"mint":   record.Mint,
		"status": status,
		"profit": record.ProfitPct,
	}).Info("trade finished")
}
