// Package normalizer maps raw provider records onto canonical rate
// entries. It performs no I/O; skipped and duplicate counts are returned
// to the caller for reporting.
package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ratefeed/internal/feed"
	"ratefeed/internal/fetcher"
)

// Defaults holds the fallback values applied when a record's optional
// numeric fields are missing or unparseable.
type Defaults struct {
	Amount    decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Param     string
}

// CanonicalDefaults returns the built-in fallback values.
func CanonicalDefaults() Defaults {
	return Defaults{
		Amount:    decimal.Zero,
		MinAmount: decimal.Zero,
		MaxAmount: decimal.NewFromInt(999999999),
		Param:     "0",
	}
}

// DefaultsFromStrings parses configured default values, keeping the
// canonical fallback for anything unparseable.
func DefaultsFromStrings(amount, minAmount, maxAmount, param string) Defaults {
	d := CanonicalDefaults()
	if v, ok := parseAmount(amount); ok && !v.IsNegative() {
		d.Amount = v
	}
	if v, ok := parseAmount(minAmount); ok && !v.IsNegative() {
		d.MinAmount = v
	}
	if v, ok := parseAmount(maxAmount); ok && !v.IsNegative() {
		d.MaxAmount = v
	}
	if param != "" {
		d.Param = param
	}
	return d
}

// Result is the outcome of normalizing one exchanger's records.
type Result struct {
	Entries []feed.RateEntry
	// Skipped counts records that could not be minimally parsed: no
	// identifiable currency pair, or no usable rate.
	Skipped int
	// Duplicates counts well-formed records dropped because the same
	// direction already appeared earlier in the input.
	Duplicates int
}

// Normalizer converts raw records into canonical rate entries.
type Normalizer struct {
	defaults Defaults
	log      logrus.FieldLogger
}

// New creates a Normalizer with the given defaults.
func New(defaults Defaults, log logrus.FieldLogger) *Normalizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Normalizer{defaults: defaults, log: log}
}

var one = decimal.NewFromInt(1)

// Normalize maps records onto rate entries, preserving input order.
// Records without an identifiable currency pair or a positive rate are
// skipped, not fatal. Rates are rescaled so In is always 1. Duplicate
// directions within one call keep only the first occurrence.
func (n *Normalizer) Normalize(records []fetcher.RawRecord, exchangerID string) Result {
	var res Result
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		from := NormalizeTicker(rec.From)
		to := NormalizeTicker(rec.To)
		if from == "" || to == "" || from == to {
			res.Skipped++
			n.log.WithField("exchanger", exchangerID).
				Debugf("skipping record without usable pair: %q -> %q", rec.From, rec.To)
			continue
		}

		out, ok := parseAmount(rec.Out)
		if !ok || !out.IsPositive() {
			res.Skipped++
			n.log.WithField("exchanger", exchangerID).
				Debugf("skipping record %s -> %s with unusable rate %q", from, to, rec.Out)
			continue
		}

		in, ok := parseAmount(rec.In)
		if !ok || !in.IsPositive() {
			in = one
		}
		// Rescale so one unit of From is quoted
		if !in.Equal(one) {
			out = out.Div(in)
			in = one
		}

		key := from + ">" + to
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		entry := feed.RateEntry{
			From:      from,
			To:        to,
			In:        in,
			Out:       out,
			Amount:    n.amountOrDefault(rec.Reserve, n.defaults.Amount),
			MinAmount: n.amountOrDefault(rec.Min, n.defaults.MinAmount),
			MaxAmount: n.amountOrDefault(rec.Max, n.defaults.MaxAmount),
			Param:     paramOrDefault(rec.Param, n.defaults.Param),
		}
		if entry.MinAmount.GreaterThan(entry.MaxAmount) {
			entry.MinAmount, entry.MaxAmount = entry.MaxAmount, entry.MinAmount
		}
		if err := entry.Validate(); err != nil {
			res.Skipped++
			n.log.WithField("exchanger", exchangerID).Debugf("skipping entry: %v", err)
			continue
		}

		res.Entries = append(res.Entries, entry)
	}

	return res
}

func (n *Normalizer) amountOrDefault(raw string, fallback decimal.Decimal) decimal.Decimal {
	v, ok := parseAmount(raw)
	if !ok || v.IsNegative() {
		return fallback
	}
	return v
}

func paramOrDefault(raw, fallback string) string {
	if raw = strings.TrimSpace(raw); raw != "" {
		return raw
	}
	return fallback
}

// parseAmount parses a number out of messy upstream text: thousands
// separators, spaces and currency suffixes are stripped; a comma counts as
// a decimal point. "6 807 113.7810" parses to 6807113.7810.
func parseAmount(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, false
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")

	// With multiple dots only the last one is the decimal separator
	if parts := strings.Split(cleaned, "."); len(parts) > 2 {
		cleaned = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
