package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"ratefeed/internal/cache"
	"ratefeed/internal/exnode"
	"ratefeed/internal/fetcher"
	"ratefeed/internal/metrics"
	"ratefeed/internal/normalizer"
	"ratefeed/internal/ratelimit"
	"ratefeed/internal/scheduler"
	"ratefeed/internal/server"
)

// The full pipeline: an upstream API with two exchangers, one healthy and
// one flaky, flowing through fetch, normalization, aggregation and export
// to the XML artifact and the feed server.
func TestEndToEndPipeline(t *testing.T) {
	var exc2Down atomic.Bool

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/exchangers/exc1/rates":
			fmt.Fprint(w, `{"rates": [
				{"from": "Bitcoin", "to": "usdt_trc20", "in": "1", "out": "65000.5", "reserve": "120 000", "min": "0.001", "max": "2"},
				{"from": "QIWI", "to": "USDT", "in": "100", "out": "1.02"},
				{"from": "", "to": "", "out": "garbage"}
			]}`)
		case "/api/exchangers/exc2/rates":
			if exc2Down.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `[{"give": "Sberbank", "get": "BTC", "rate": "0.0000001"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	outputPath := filepath.Join(t.TempDir(), "rates.xml")
	limiter := ratelimit.New(0, 1)
	policy := fetcher.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	var fetchers []fetcher.Fetcher
	for _, id := range []string{"exc1", "exc2"} {
		fetchers = append(fetchers, exnode.New(exnode.Config{
			ExchangerID: id,
			BaseURL:     upstream.URL,
			Retry:       policy,
			Limiter:     limiter,
			Logger:      log,
		}))
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	norm := normalizer.New(normalizer.CanonicalDefaults(), log)
	sched := scheduler.New(scheduler.Config{
		Interval:     time.Hour,
		FetchTimeout: 5 * time.Second,
		MaxSkipRatio: 1.0,
		OutputPath:   outputPath,
	}, fetchers, norm, cache.New(), m, log)

	// First cycle: both exchangers healthy
	if err := sched.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}

	var doc struct {
		Count int `xml:"count,attr"`
		Items []struct {
			From      string `xml:"from"`
			To        string `xml:"to"`
			In        string `xml:"in"`
			Out       string `xml:"out"`
			Amount    string `xml:"amount"`
			MaxAmount string `xml:"maxamount"`
			Param     string `xml:"param"`
		} `xml:"item"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("artifact is not valid XML: %v", err)
	}
	if doc.Count != 3 || len(doc.Items) != 3 {
		t.Fatalf("count = %d, items = %d, want 3 each:\n%s", doc.Count, len(doc.Items), data)
	}

	// Tickers normalized, amounts cleaned, rate rescaled to in=1
	first := doc.Items[0]
	if first.From != "BTC" || first.To != "USDTTRC20" {
		t.Errorf("first pair = %s/%s, want BTC/USDTTRC20", first.From, first.To)
	}
	if first.Amount != "120000" {
		t.Errorf("first amount = %q, want 120000", first.Amount)
	}
	second := doc.Items[1]
	if second.From != "QWRUB" || second.In != "1" || second.Out != "0.0102" {
		t.Errorf("second item = %+v", second)
	}
	if second.MaxAmount != "999999999" || second.Param != "0" {
		t.Errorf("second item defaults = %+v", second)
	}
	if doc.Items[2].From != "SBERRUB" {
		t.Errorf("third pair from = %s, want SBERRUB", doc.Items[2].From)
	}

	// Second cycle: exc2 goes down, its cached entries stay in the feed
	exc2Down.Store(true)
	if err := sched.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	st := sched.Status()
	if st.FreshExchangers != 1 || st.PublishedEntries != 3 {
		t.Errorf("after fallback: fresh = %d, entries = %d, want 1/3", st.FreshExchangers, st.PublishedEntries)
	}

	// The feed server exposes the artifact and the degraded status
	srv := server.New(sched, m, registry, outputPath, time.Minute, log)
	router := srv.Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rates.xml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /rates.xml = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<from>SBERRUB</from>") {
		t.Error("served feed should still carry the cached exc2 entries")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200 (one exchanger is still fresh)", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `ratefeed_fallbacks_total{exchanger="exc2"} 1`) {
		t.Error("metrics should count the exc2 fallback")
	}
}
