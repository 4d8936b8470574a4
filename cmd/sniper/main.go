// Command sniper watches the pump.fun event feed for new tokens and runs an
// autonomous buy-then-sell cycle per token with a take-profit exit.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fpolica91/Solana-Bots/internal/config"
	"github.com/fpolica91/Solana-Bots/internal/curve"
	"github.com/fpolica91/Solana-Bots/internal/executor"
	"github.com/fpolica91/Solana-Bots/internal/feed"
	"github.com/fpolica91/Solana-Bots/internal/monitor"
	"github.com/fpolica91/Solana-Bots/internal/observability"
	"github.com/fpolica91/Solana-Bots/internal/solana"
	"github.com/fpolica91/Solana-Bots/internal/storage"
	chstore "github.com/fpolica91/Solana-Bots/internal/storage/clickhouse"
	"github.com/fpolica91/Solana-Bots/internal/storage/memory"
	"github.com/fpolica91/Solana-Bots/internal/storage/migrations"
	pgstore "github.com/fpolica91/Solana-Bots/internal/storage/postgres"
	"github.com/fpolica91/Solana-Bots/internal/trader"
	"github.com/fpolica91/Solana-Bots/internal/wallet"
)

const shutdownGrace = 30 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tradeStore, historyStore, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("create stores")
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	ws := solana.NewWSClient(cfg.WSEndpoint, nil, log)
	defer ws.Close()

	reader := curve.NewReader(rpc)

	signer, err := wallet.New(wallet.Options{
		RPC:                      rpc,
		SecretKey:                cfg.WalletSecretKey,
		PriorityFeeMicroLamports: cfg.PriorityFeeMicroLamports,
		Logger:                   log,
	})
	if err != nil {
		log.WithError(err).Fatal("load wallet")
	}

	exec, err := executor.New(executor.Options{
		RPC:             rpc,
		Wallet:          signer,
		Reader:          reader,
		SlippagePct:     cfg.SlippagePct,
		ConfirmRetries:  cfg.ConfirmRetries,
		ConfirmInterval: cfg.ConfirmInterval,
		Logger:          log,
	})
	if err != nil {
		log.WithError(err).Fatal("create executor")
	}

	manager, err := trader.New(trader.Options{
		Store:             tradeStore,
		Executor:          exec,
		Buyer:             signer.Pubkey().String(),
		BuyAmountLamports: uint64(cfg.BuyAmountSOL * curve.LamportsPerSOL),
		TakeProfitPct:     cfg.TakeProfitPct,
		MaxConcurrent:     cfg.MaxConcurrentTrades,
		SettleDelay:       cfg.SettleDelay,
		MaxSellAttempts:   cfg.MaxSellRetries,
		MaxTradeAge:       cfg.MaxTradeAge,
		Logger:            log,
	})
	if err != nil {
		log.WithError(err).Fatal("create trade manager")
	}

	positionMonitor, err := monitor.New(monitor.Options{
		Store:    tradeStore,
		History:  historyStore,
		Reader:   reader,
		Executor: exec,
		Active:   manager,
		Interval: cfg.MonitorInterval,
		Logger:   log,
	})
	if err != nil {
		log.WithError(err).Fatal("create position monitor")
	}

	streamer := feed.NewStreamer(ws, manager, feed.Classifier{Strict: cfg.StrictEvents}, log)

	// Metrics endpoint.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		log.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	// Shutdown on SIGINT/SIGTERM; a second signal forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("shutting down")
		cancel()

		select {
		case <-sigCh:
			log.Warn("second signal, forcing exit")
		case <-time.After(shutdownGrace):
			log.Warn("graceful shutdown timed out, forcing exit")
		}
		os.Exit(1)
	}()

	go func() {
		if err := positionMonitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("position monitor stopped")
		}
	}()

	go sweepLoop(ctx, manager, cfg.MaxTradeAge)

	log.WithFields(logrus.Fields{
		"buyer":          signer.Pubkey().String(),
		"buy_amount_sol": cfg.BuyAmountSOL,
		"take_profit":    cfg.TakeProfitPct,
		"max_concurrent": cfg.MaxConcurrentTrades,
	}).Info("sniper started")

	if err := streamer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("feed streamer stopped")
	}

	// Let in-flight trades finish their cycles.
	log.Info("waiting for in-flight trades")
	manager.Wait()
	log.Info("shutdown complete")
}

// sweepLoop periodically cancels trade cycles that outlived the max age.
func sweepLoop(ctx context.Context, manager *trader.Manager, maxAge time.Duration) {
	ticker := time.NewTicker(maxAge / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.SweepStale()
		}
	}
}

// createStores builds the trade and price-history stores, in memory or on
// PostgreSQL plus ClickHouse with migrations applied.
func createStores(ctx context.Context, cfg config.Config) (storage.TradeStore, storage.PriceHistoryStore, func(), error) {
	if cfg.UseMemory() {
		return memory.NewTradeStore(), memory.NewPriceHistoryStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		conn.Close()
	}
	return pgstore.NewTradeStore(pool), chstore.NewPriceHistoryStore(conn), cleanup, nil
}
