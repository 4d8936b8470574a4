package trader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/executor"
	"github.com/fpolica91/Solana-Bots/internal/feed"
	"github.com/fpolica91/Solana-Bots/internal/observability"
	"github.com/fpolica91/Solana-Bots/internal/retry"
	"github.com/fpolica91/Solana-Bots/internal/storage/memory"
)

// realizedProfitSum reads the running sum of the realized profit histogram.
func realizedProfitSum(t *testing.T) float64 {
	t.Helper()
	var pb dto.Metric
	if err := observability.DefaultMetrics.RealizedProfitPct.Write(&pb); err != nil {
		t.Fatalf("read histogram: %v", err)
	}
	return pb.GetHistogram().GetSampleSum()
}

// fastBackoff keeps retry tests from sleeping for real.
var fastBackoff = retry.Policy{MaxAttempts: 10, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

// fakeExecutor scripts Buy and Sell outcomes per mint.
type fakeExecutor struct {
	mu sync.Mutex

	buyErr   error
	sellErrs []error // consumed per call; nil means success
	buys     atomic.Int64
	sells    atomic.Int64

	// inFlight tracks concurrent Buy calls for gate tests.
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	buyDelay    time.Duration
}

func (f *fakeExecutor) Buy(ctx context.Context, mint string, spendLamports uint64) (*executor.BuyResult, error) {
	f.buys.Add(1)
	cur := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if cur <= max || f.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.buyDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.buyDelay):
		}
	}
	f.inFlight.Add(-1)

	if f.buyErr != nil {
		return nil, f.buyErr
	}
	return &executor.BuyResult{Signature: "buysig", TokensBought: 1_000_000, Price: 1.0}, nil
}

func (f *fakeExecutor) Sell(ctx context.Context, mint string, fractionPct float64) (*executor.SellResult, error) {
	f.sells.Add(1)
	f.mu.Lock()
	var err error
	if len(f.sellErrs) > 0 {
		err = f.sellErrs[0]
		f.sellErrs = f.sellErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &executor.SellResult{Signature: "sellsig", TokensSold: 1_000_000, Price: 1.3}, nil
}

func newTestManager(t *testing.T, exec Executor, opts func(*Options)) (*Manager, *memory.TradeStore) {
	t.Helper()

	store := memory.NewTradeStore()
	o := Options{
		Store:             store,
		Executor:          exec,
		Buyer:             "testbuyer",
		BuyAmountLamports: 10_000_000,
		TakeProfitPct:     25,
		MaxConcurrent:     2,
		SettleDelay:       time.Millisecond,
		MaxSellAttempts:   3,
		SellRetryDelay:    time.Millisecond,
		SellBackoff:       &fastBackoff,
	}
	if opts != nil {
		opts(&o)
	}
	m, err := New(o)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	return m, store
}

func event(mint string) feed.TokenEvent {
	return feed.TokenEvent{Mint: mint, BondingCurve: "curve" + mint, Creator: "creator"}
}

func TestManager_FullCycle(t *testing.T) {
	exec := &fakeExecutor{}
	m, store := newTestManager(t, exec, nil)

	if err := m.Admit(context.Background(), event("mintA")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	m.Wait()

	record, err := store.GetByMint(context.Background(), "mintA")
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if record.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}
	if record.SoldPrice == nil || *record.SoldPrice != 1.3 {
		t.Errorf("SoldPrice = %v, want 1.3", record.SoldPrice)
	}
	if record.ProfitPct < 29 || record.ProfitPct > 31 {
		t.Errorf("ProfitPct = %v, want ~30", record.ProfitPct)
	}
	if record.EndTime == nil {
		t.Error("EndTime not set")
	}
	if m.IsActive("mintA") {
		t.Error("mint still in the active set after the cycle")
	}
}

func TestManager_AdmissionExclusivity(t *testing.T) {
	exec := &fakeExecutor{buyDelay: 50 * time.Millisecond}
	m, _ := newTestManager(t, exec, nil)

	ctx := context.Background()
	if err := m.Admit(ctx, event("mintA")); err != nil {
		t.Fatalf("first Admit failed: %v", err)
	}
	if err := m.Admit(ctx, event("mintA")); !errors.Is(err, feed.ErrAlreadyActive) {
		t.Errorf("second Admit = %v, want ErrAlreadyActive", err)
	}
	if m.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", m.ActiveCount())
	}
	m.Wait()
}

func TestManager_ConcurrentAdmissionExactlyOne(t *testing.T) {
	exec := &fakeExecutor{buyDelay: 20 * time.Millisecond}
	m, _ := newTestManager(t, exec, nil)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Admit(context.Background(), event("mintA")); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	m.Wait()

	if admitted.Load() != 1 {
		t.Errorf("admitted %d trades for one mint, want exactly 1", admitted.Load())
	}
}

func TestManager_GateBoundsConcurrency(t *testing.T) {
	exec := &fakeExecutor{buyDelay: 30 * time.Millisecond}
	m, _ := newTestManager(t, exec, func(o *Options) {
		o.MaxConcurrent = 2
	})

	ctx := context.Background()
	for _, mint := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if err := m.Admit(ctx, event(mint)); err != nil {
			t.Fatalf("Admit(%s) failed: %v", mint, err)
		}
	}
	m.Wait()

	if exec.buys.Load() != 5 {
		t.Errorf("buys = %d, want 5", exec.buys.Load())
	}
	if max := exec.maxInFlight.Load(); max > 2 {
		t.Errorf("max concurrent buys = %d, want at most 2", max)
	}
}

func TestManager_BuyFailureMarksFailed(t *testing.T) {
	exec := &fakeExecutor{buyErr: executor.ErrNoMarketData}
	m, store := newTestManager(t, exec, nil)

	if err := m.Admit(context.Background(), event("mintA")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	m.Wait()

	record, err := store.GetByMint(context.Background(), "mintA")
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if record.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", record.Status)
	}
	if exec.sells.Load() != 0 {
		t.Error("attempted a sell after a failed buy")
	}
	if m.IsActive("mintA") {
		t.Error("mint still active after failed buy")
	}
}

func TestManager_SellRetriesThenSucceeds(t *testing.T) {
	exec := &fakeExecutor{sellErrs: []error{
		executor.ErrTransactionFailed,
		errors.New("rpc flake"),
	}}
	m, store := newTestManager(t, exec, func(o *Options) {
		o.MaxSellAttempts = 5
	})

	if err := m.Admit(context.Background(), event("mintA")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	m.Wait()

	if exec.sells.Load() != 3 {
		t.Errorf("sells = %d, want 3", exec.sells.Load())
	}
	record, _ := store.GetByMint(context.Background(), "mintA")
	if record.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}
}

func TestManager_SellExhaustionMarksFailedHolding(t *testing.T) {
	exec := &fakeExecutor{sellErrs: []error{
		executor.ErrTransactionFailed,
		executor.ErrTransactionFailed,
		executor.ErrTransactionFailed,
	}}
	m, store := newTestManager(t, exec, nil) // MaxSellAttempts: 3

	if err := m.Admit(context.Background(), event("mintA")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	m.Wait()

	record, _ := store.GetByMint(context.Background(), "mintA")
	if record.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed while holding", record.Status)
	}
	if m.IsActive("mintA") {
		t.Error("mint still active after exhaustion")
	}
}

func TestManager_MonitorSoldFirst(t *testing.T) {
	store := memory.NewTradeStore()
	exec := &fakeExecutor{sellErrs: []error{executor.ErrNothingToSell}}
	m, err := New(Options{
		Store:             store,
		Executor:          exec,
		BuyAmountLamports: 1,
		MaxConcurrent:     1,
		SettleDelay:       30 * time.Millisecond,
		MaxSellAttempts:   3,
		SellRetryDelay:    time.Millisecond,
		SellBackoff:       &fastBackoff,
	})
	if err != nil {
		t.Fatal(err)
	}

	profitBefore := realizedProfitSum(t)

	if err := m.Admit(context.Background(), event("mintA")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	// While the cycle sits in its settle delay, complete the record the way
	// the position monitor would.
	time.Sleep(10 * time.Millisecond)
	record, err := store.GetByMint(context.Background(), "mintA")
	if err != nil {
		t.Fatalf("record missing mid-cycle: %v", err)
	}
	now := time.Now().UnixMilli()
	sold := 2.0
	record.Status = domain.StatusCompleted
	record.EndTime = &now
	record.SoldPrice = &sold
	record.ProfitPct = 100
	if err := store.Update(context.Background(), record); err != nil {
		t.Fatal(err)
	}

	m.Wait()

	// The cycle observes the monitor's realized figure, not its own stale
	// buy-time snapshot.
	if got := realizedProfitSum(t) - profitBefore; got < 99.9 || got > 100.1 {
		t.Errorf("realized profit observed = %v, want the monitor's 100", got)
	}

	final, _ := store.GetByMint(context.Background(), "mintA")
	if final.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if final.SoldPrice == nil || *final.SoldPrice != 2.0 {
		t.Errorf("SoldPrice = %v, want the monitor's 2.0 preserved", final.SoldPrice)
	}
	if exec.sells.Load() != 1 {
		t.Errorf("sells = %d, want 1", exec.sells.Load())
	}
}

func TestManager_CancelledWhileGated(t *testing.T) {
	exec := &fakeExecutor{buyDelay: 100 * time.Millisecond}
	m, _ := newTestManager(t, exec, func(o *Options) {
		o.MaxConcurrent = 1
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Admit(ctx, event("m1")); err != nil {
		t.Fatal(err)
	}
	if err := m.Admit(ctx, event("m2")); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	m.Wait()

	if m.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d after shutdown, want 0", m.ActiveCount())
	}
}

// waitFor polls a condition with a deadline.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestManager_SweepStaleFreesGatePermit(t *testing.T) {
	exec := &fakeExecutor{buyDelay: 5 * time.Second}
	m, _ := newTestManager(t, exec, func(o *Options) {
		o.MaxConcurrent = 1
		o.MaxTradeAge = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Admit(ctx, event("stuck")); err != nil {
		t.Fatal(err)
	}
	// The stuck cycle holds the only permit inside its hung buy.
	waitFor(t, "stuck cycle to reach its buy", func() bool { return exec.buys.Load() == 1 })

	m.mu.Lock()
	handle := m.active["stuck"]
	handle.admitted = time.Now().Add(-time.Minute)
	m.active["stuck"] = handle
	m.mu.Unlock()

	if err := m.Admit(ctx, event("fresh")); err != nil {
		t.Fatal(err)
	}

	evicted := m.SweepStale()
	if len(evicted) != 1 || evicted[0] != "stuck" {
		t.Fatalf("evicted = %v, want [stuck] and fresh untouched", evicted)
	}

	// The cancelled cycle unwinds through its defers, handing the permit
	// to the queued trade and clearing its own active entry.
	waitFor(t, "fresh cycle to reach its buy", func() bool { return exec.buys.Load() == 2 })
	waitFor(t, "stuck entry to leave the active set", func() bool { return !m.IsActive("stuck") })

	cancel()
	m.Wait()
}

// blockingExecutor parks every Buy until released, ignoring cancellation,
// to pin a cycle mid-flight.
type blockingExecutor struct {
	fakeExecutor
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExecutor) Buy(ctx context.Context, mint string, spendLamports uint64) (*executor.BuyResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeExecutor.Buy(ctx, mint, spendLamports)
}

func TestManager_SweepStaleBlocksReadmissionUntilUnwound(t *testing.T) {
	exec := &blockingExecutor{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	m, _ := newTestManager(t, exec, func(o *Options) {
		o.MaxConcurrent = 1
		o.MaxTradeAge = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Admit(ctx, event("stuck")); err != nil {
		t.Fatal(err)
	}
	<-exec.entered

	m.mu.Lock()
	handle := m.active["stuck"]
	handle.admitted = time.Now().Add(-time.Minute)
	m.active["stuck"] = handle
	m.mu.Unlock()

	m.SweepStale()

	// The entry stays until the cancelled cycle actually exits, so the
	// mint cannot run two live trades at once.
	if err := m.Admit(ctx, event("stuck")); !errors.Is(err, feed.ErrAlreadyActive) {
		t.Errorf("re-admission while the old cycle is live = %v, want ErrAlreadyActive", err)
	}

	close(exec.release)
	cancel()
	m.Wait()

	if m.IsActive("stuck") {
		t.Error("entry not cleared after the cancelled cycle unwound")
	}
}
