package domain

// TradeStatus is the lifecycle state of a trade record.
type TradeStatus string

// Trade lifecycle states. A record is inserted as pending when a mint is
// admitted, becomes active once the buy confirms, and terminates as either
// completed (sold) or failed (buy rejected, or sell retries exhausted while
// still holding the token).
const (
	StatusPending   TradeStatus = "pending"
	StatusActive    TradeStatus = "active"
	StatusCompleted TradeStatus = "completed"
	StatusFailed    TradeStatus = "failed"
)

// TradeRecord is the persisted state of one buy/sell cycle, keyed by mint.
// The lifecycle engine reads and updates it; storage owns retention.
type TradeRecord struct {
	Mint         string
	BondingCurve string
	Buyer        string // buyer wallet pubkey

	TakeProfitPct float64 // exit threshold in percent

	StartTime int64  // unix ms, set at admission
	EndTime   *int64 // unix ms, set on terminal status

	Status TradeStatus

	// Pricing. Prices are SOL per token; amounts are raw token base units.
	CurrentPrice float64
	BoughtPrice  float64
	BoughtAmount float64
	SoldPrice    *float64
	ProfitPct    float64
}

// Terminal reports whether the record reached a final state.
func (t *TradeRecord) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
