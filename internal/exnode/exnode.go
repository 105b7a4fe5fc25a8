// Package exnode fetches raw exchange rates from the exnode.ru API for a
// single exchanger. The JSON shape varies between exchangers, so field
// extraction tries the key spellings seen in the wild and the transport
// accepts a pluggable parse hook for anything it cannot handle itself.
package exnode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"

	"ratefeed/internal/fetcher"
	"ratefeed/internal/ratelimit"
)

const defaultRatesEndpoint = "/api/exchangers/%s/rates"

// ParseFunc decodes a raw upstream response body into records. The default
// is ParseRecords; tests and alternative sources may supply their own.
type ParseFunc func(data []byte) ([]fetcher.RawRecord, error)

// Config describes one exchanger's fetcher.
type Config struct {
	ExchangerID string
	Name        string
	// BaseURL is the API root, e.g. "https://exnode.ru".
	BaseURL string
	// URL optionally overrides the full rates endpoint for this exchanger.
	URL     string
	Timeout time.Duration
	Retry   fetcher.RetryPolicy
	Limiter *ratelimit.Limiter
	Parse   ParseFunc
	Logger  logrus.FieldLogger
}

// RatesFetcher fetches raw rate records for one exchanger from exnode.ru.
// It implements fetcher.Fetcher.
type RatesFetcher struct {
	exchangerID string
	name        string
	path        string
	client      *resty.Client
	policy      fetcher.RetryPolicy
	limiter     *ratelimit.Limiter
	parse       ParseFunc
	log         logrus.FieldLogger
}

// New creates a fetcher for one exchanger.
func New(cfg Config) *RatesFetcher {
	base := cfg.BaseURL
	path := fmt.Sprintf(defaultRatesEndpoint, cfg.ExchangerID)
	if cfg.URL != "" {
		base = cfg.URL
		path = ""
	}

	parse := cfg.Parse
	if parse == nil {
		parse = ParseRecords
	}

	var log logrus.FieldLogger = logrus.StandardLogger()
	if cfg.Logger != nil {
		log = cfg.Logger
	}
	log = log.WithField("exchanger", cfg.ExchangerID)

	return &RatesFetcher{
		exchangerID: cfg.ExchangerID,
		name:        cfg.Name,
		path:        path,
		client:      fetcher.NewHTTPClient(base, cfg.Timeout),
		policy:      cfg.Retry,
		limiter:     cfg.Limiter,
		parse:       parse,
		log:         log,
	}
}

// ExchangerID returns the exchanger this fetcher serves.
func (f *RatesFetcher) ExchangerID() string {
	return f.exchangerID
}

// Fetch retrieves the exchanger's raw records, retrying transient failures
// with backoff. It returns a KindExhausted error once retries run out and
// fails immediately on permanent upstream rejections.
func (f *RatesFetcher) Fetch(ctx context.Context) ([]fetcher.RawRecord, error) {
	return fetcher.Retry(ctx, f.policy, f.log, f.fetchOnce)
}

func (f *RatesFetcher) fetchOnce(ctx context.Context) ([]fetcher.RawRecord, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.path)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	records, err := f.parse(resp.Bytes())
	if err != nil {
		return nil, fetcher.NewParseError(err)
	}

	f.log.Debugf("fetched %d raw records", len(records))
	return records, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fetcher.NewTimeoutError(err)
	}
	return fetcher.NewNetworkError(err)
}
