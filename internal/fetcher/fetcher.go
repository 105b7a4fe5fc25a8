package fetcher

import "context"

// RawRecord is one exchange direction as received from the upstream
// provider, before any normalization. All fields are kept as strings:
// upstream formats are inconsistent and parsing happens downstream.
type RawRecord struct {
	From    string
	To      string
	In      string
	Out     string
	Reserve string
	Min     string
	Max     string
	Param   string
}

// Fetcher retrieves the raw rate records for one exchanger.
// Implementations own their transport, retries and rate limiting; the
// scheduler only sees records or a final error.
type Fetcher interface {
	// Fetch retrieves all raw records for the exchanger. The context
	// bounds the whole operation including retries and backoff delays.
	Fetch(ctx context.Context) ([]RawRecord, error)

	// ExchangerID returns the stable identifier of the exchanger this
	// fetcher serves. It keys the aggregation cache and the feed order.
	ExchangerID() string
}
