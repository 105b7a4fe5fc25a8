package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"ratefeed/internal/cache"
	"ratefeed/internal/fetcher"
	"ratefeed/internal/metrics"
	"ratefeed/internal/normalizer"
	"ratefeed/internal/scheduler"
	"ratefeed/internal/testutil"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fixture struct {
	server *Server
	sched  *scheduler.Scheduler
	router http.Handler
}

func newFixture(t *testing.T, fetchers []fetcher.Fetcher) *fixture {
	t.Helper()

	outputPath := filepath.Join(t.TempDir(), "rates.xml")
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	norm := normalizer.New(normalizer.CanonicalDefaults(), quietLogger())
	sched := scheduler.New(scheduler.Config{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
		MaxSkipRatio: 1.0,
		OutputPath:   outputPath,
	}, fetchers, norm, cache.New(), m, quietLogger())

	srv := New(sched, m, registry, outputPath, time.Minute, quietLogger())
	return &fixture{server: srv, sched: sched, router: srv.Routes()}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func okFetcher(id string) fetcher.Fetcher {
	return testutil.NewMockFetcher(id, []fetcher.RawRecord{
		{From: "BTC", To: "USDT", In: "1", Out: "65000"},
	}, nil)
}

func TestFeedServesPublishedArtifact(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{okFetcher("exc1")})
	if err := f.sched.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	for _, path := range []string{"/", "/rates", "/rates.xml"} {
		rec := f.get(path)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
			t.Errorf("GET %s Content-Type = %q", path, ct)
		}
		if !strings.Contains(rec.Body.String(), "<from>BTC</from>") {
			t.Errorf("GET %s body missing entries:\n%s", path, rec.Body.String())
		}
		if rec.Header().Get("X-Generated-At") == "" {
			t.Errorf("GET %s missing X-Generated-At header", path)
		}
	}
}

func TestFeedBeforeFirstCycleServesEmptyFeed(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{okFetcher("exc1")})

	rec := f.get("/rates")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `count="0"`) {
		t.Errorf("body should be the empty feed:\n%s", rec.Body.String())
	}
}

func TestFeedBeforeFirstCycleServesPersistedArtifact(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{okFetcher("exc1")})

	persisted := `<?xml version="1.0"?><rates generated="x" count="1"><item><from>ETH</from></item></rates>`
	if err := os.WriteFile(f.server.outputPath, []byte(persisted), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := f.get("/rates")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != persisted {
		t.Errorf("body = %q, want the persisted artifact", rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{okFetcher("exc1")})

	rec := f.get("/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before first cycle = %d, want 503", rec.Code)
	}

	if err := f.sched.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	rec = f.get("/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status after cycle = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("health response is not JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestHealthUnhealthyWhenAllExchangersFail(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{
		testutil.NewMockFetcher("exc1", nil, errors.New("down")),
	})
	_ = f.sched.RunCycle(context.Background())

	rec := f.get("/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{
		okFetcher("exc1"),
		testutil.NewMockFetcher("exc2", nil, errors.New("down")),
	})
	if err := f.sched.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	rec := f.get("/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Scheduler struct {
			CycleCount      int `json:"cycle_count"`
			FreshExchangers int `json:"fresh_exchangers"`
			Exchangers      []struct {
				ExchangerID string `json:"exchanger_id"`
				LastError   string `json:"last_error"`
			} `json:"exchangers"`
		} `json:"scheduler"`
		ArtifactSizeBytes int `json:"artifact_size_bytes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("status response is not JSON: %v", err)
	}
	if body.Scheduler.CycleCount != 1 || body.Scheduler.FreshExchangers != 1 {
		t.Errorf("scheduler status = %+v", body.Scheduler)
	}
	if len(body.Scheduler.Exchangers) != 2 {
		t.Fatalf("exchangers = %d, want 2", len(body.Scheduler.Exchangers))
	}
	if body.Scheduler.Exchangers[1].LastError == "" {
		t.Error("failed exchanger should report its error")
	}
	if body.ArtifactSizeBytes == 0 {
		t.Error("artifact size should be non-zero after publish")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, []fetcher.Fetcher{okFetcher("exc1")})
	if err := f.sched.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	f.get("/rates")

	rec := f.get("/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"ratefeed_published_entries 1",
		"ratefeed_feed_requests_total 1",
		`ratefeed_cycles_total{result="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
