package fetcher

// Result is the outcome of one exchanger's fetch within a cycle. It is
// sent through a channel from worker goroutines to the scheduler.
type Result struct {
	// ExchangerID identifies which exchanger this result belongs to
	ExchangerID string

	// Records holds the fetched raw records. Only valid when Err is nil.
	Records []RawRecord

	// Err contains the final error after retries were exhausted or a
	// permanent failure was hit. Nil on success.
	Err error
}
