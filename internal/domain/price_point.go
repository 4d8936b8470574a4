package domain

// PricePoint is one observation of an open position's price, appended by the
// position monitor on every tick. Points are append-only; the trade record
// holds only the latest value.
type PricePoint struct {
	Mint        string
	PriceSOL    float64 // SOL per token
	ProfitPct   float64 // relative to bought price at observation time
	TimestampMs int64
}
