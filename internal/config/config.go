// Package config loads runtime configuration from environment variables,
// with an optional .env file.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration surface.
type Config struct {
	// Endpoints.
	RPCEndpoint string `env:"SOLANA_RPC_ENDPOINT"`
	WSEndpoint  string `env:"SOLANA_WS_ENDPOINT"`

	// Storage. Empty DSNs fall back to in-memory stores.
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// Wallet.
	WalletSecretKey          string `env:"WALLET_SECRET_KEY"`
	PriorityFeeMicroLamports uint64 `env:"PRIORITY_FEE_MICROLAMPORTS" envDefault:"0"`

	// Trade sizing and exits.
	BuyAmountSOL  float64 `env:"BUY_AMOUNT_SOL" envDefault:"0.01"`
	SlippagePct   float64 `env:"SLIPPAGE_PCT" envDefault:"25"`
	TakeProfitPct float64 `env:"TAKE_PROFIT_PCT" envDefault:"25"`

	// Lifecycle pacing.
	MaxConcurrentTrades int64         `env:"MAX_CONCURRENT_TRADES" envDefault:"2"`
	SettleDelay         time.Duration `env:"SETTLE_DELAY" envDefault:"30s"`
	MaxSellRetries      int           `env:"MAX_SELL_RETRIES" envDefault:"10"`
	MaxTradeAge         time.Duration `env:"MAX_TRADE_AGE" envDefault:"15m"`

	// Confirmation polling.
	ConfirmRetries  int           `env:"CONFIRM_RETRIES" envDefault:"7"`
	ConfirmInterval time.Duration `env:"CONFIRM_INTERVAL" envDefault:"2s"`

	// Position monitor.
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL" envDefault:"15s"`

	// Event classification. Strict requires both creation markers on one
	// event; lenient accepts either.
	StrictEvents bool `env:"STRICT_EVENTS" envDefault:"false"`

	// Observability.
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (Config, error) {
	// Missing .env is fine; system env vars win either way.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.RPCEndpoint == "" {
		return errors.New("SOLANA_RPC_ENDPOINT is required")
	}
	if c.WSEndpoint == "" {
		return errors.New("SOLANA_WS_ENDPOINT is required")
	}
	if (c.PostgresDSN == "") != (c.ClickhouseDSN == "") {
		return errors.New("POSTGRES_DSN and CLICKHOUSE_DSN must be set together")
	}
	if c.BuyAmountSOL <= 0 {
		return errors.New("BUY_AMOUNT_SOL must be positive")
	}
	return nil
}

// UseMemory reports whether the in-memory stores should be used.
func (c Config) UseMemory() bool {
	return c.PostgresDSN == ""
}
