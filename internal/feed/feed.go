package feed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateEntry is one canonical exchange direction, ready for export.
// Tickers are normalized codes (uppercase, aliases collapsed).
type RateEntry struct {
	From      string
	To        string
	In        decimal.Decimal
	Out       decimal.Decimal
	Amount    decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Param     string
}

// Validate checks the invariants every published entry must hold:
// non-negative numeric fields and MinAmount <= MaxAmount.
func (e RateEntry) Validate() error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("entry missing currency pair: %q -> %q", e.From, e.To)
	}
	for _, f := range []struct {
		name string
		val  decimal.Decimal
	}{
		{"in", e.In},
		{"out", e.Out},
		{"amount", e.Amount},
		{"minamount", e.MinAmount},
		{"maxamount", e.MaxAmount},
	} {
		if f.val.IsNegative() {
			return fmt.Errorf("entry %s -> %s: negative %s: %s", e.From, e.To, f.name, f.val)
		}
	}
	if e.MinAmount.GreaterThan(e.MaxAmount) {
		return fmt.Errorf("entry %s -> %s: minamount %s exceeds maxamount %s",
			e.From, e.To, e.MinAmount, e.MaxAmount)
	}
	return nil
}

// Snapshot holds the entries obtained for one exchanger in one cycle.
type Snapshot struct {
	ExchangerID string
	Entries     []RateEntry
	FetchedAt   time.Time
	Success     bool
}

// Feed is the merged collection of entries across all exchangers for one
// cycle. It is recreated every cycle; Entries keep the configured exchanger
// order and, within an exchanger, the upstream insertion order.
type Feed struct {
	GeneratedAt time.Time
	Entries     []RateEntry
}

// Count returns the number of entries in the feed.
func (f Feed) Count() int {
	return len(f.Entries)
}
