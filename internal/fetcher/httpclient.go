package fetcher

import (
	"time"

	"resty.dev/v3"
)

const defaultUserAgent = "ratefeed/1.0"

// NewHTTPClient creates the HTTP client used by provider fetchers. Retries
// are handled by the Retry wrapper, not by the client, so error
// classification stays in one place.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", defaultUserAgent)
}
