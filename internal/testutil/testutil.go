package testutil

import (
	"context"

	"ratefeed/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) ([]fetcher.RawRecord, error)
	IDFunc    func() string
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) ([]fetcher.RawRecord, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return nil, nil
}

// ExchangerID implements the Fetcher interface
func (m *MockFetcher) ExchangerID() string {
	if m.IDFunc != nil {
		return m.IDFunc()
	}
	return "mock"
}

// NewMockFetcher creates a simple mock fetcher with predefined records
func NewMockFetcher(id string, records []fetcher.RawRecord, err error) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) ([]fetcher.RawRecord, error) {
			return records, err
		},
		IDFunc: func() string {
			return id
		},
	}
}
