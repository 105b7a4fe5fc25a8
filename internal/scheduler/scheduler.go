// Package scheduler drives the periodic fetch-normalize-export cycle
// across all configured exchangers.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ratefeed/internal/cache"
	"ratefeed/internal/exporter"
	"ratefeed/internal/feed"
	"ratefeed/internal/fetcher"
	"ratefeed/internal/metrics"
	"ratefeed/internal/normalizer"
)

// ErrNoData signals a cycle in which every exchanger failed and no cached
// data existed for any of them. Continuous mode logs it; single-shot mode
// turns it into a non-zero exit status.
var ErrNoData = errors.New("no usable rate data produced")

// Config holds the scheduler's cycle parameters.
type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	// MaxSkipRatio demotes an exchanger to failed when more than this
	// share of its records is skipped during normalization. 1.0 disables
	// the threshold.
	MaxSkipRatio float64
	OutputPath   string
}

// ExchangerStatus is the externally visible state of one exchanger.
type ExchangerStatus struct {
	ExchangerID         string    `json:"exchanger_id"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Entries             int       `json:"entries"`
	Stale               bool      `json:"stale"`
	LastError           string    `json:"last_error,omitempty"`
}

// Status is a point-in-time view of the scheduler's state, safe to expose
// to the feed server.
type Status struct {
	LastCycleAt      time.Time         `json:"last_cycle_at,omitzero"`
	LastPublishAt    time.Time         `json:"last_publish_at,omitzero"`
	CycleCount       int               `json:"cycle_count"`
	FreshExchangers  int               `json:"fresh_exchangers"`
	PublishedEntries int               `json:"published_entries"`
	LastError        string            `json:"last_error,omitempty"`
	Exchangers       []ExchangerStatus `json:"exchangers"`
}

// Scheduler owns the aggregation cache and the published feed state. It is
// the only writer of both; readers get copies through Status and Artifact.
type Scheduler struct {
	cfg      Config
	fetchers []fetcher.Fetcher
	norm     *normalizer.Normalizer
	store    *cache.Store
	metrics  *metrics.Metrics
	log      logrus.FieldLogger

	mu          sync.RWMutex
	status      Status
	byID        map[string]*ExchangerStatus
	artifact    []byte
	generatedAt time.Time
}

// New creates a Scheduler. The fetcher order fixes the feed's exchanger
// order.
func New(cfg Config, fetchers []fetcher.Fetcher, norm *normalizer.Normalizer, store *cache.Store, m *metrics.Metrics, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Scheduler{
		cfg:      cfg,
		fetchers: fetchers,
		norm:     norm,
		store:    store,
		metrics:  m,
		log:      log,
		byID:     make(map[string]*ExchangerStatus, len(fetchers)),
	}
	s.status.Exchangers = make([]ExchangerStatus, len(fetchers))
	for i, f := range fetchers {
		s.status.Exchangers[i] = ExchangerStatus{ExchangerID: f.ExchangerID()}
		s.byID[f.ExchangerID()] = &s.status.Exchangers[i]
	}
	return s
}

// contribution is one exchanger's outcome within a cycle.
type contribution struct {
	entries      []feed.RateEntry
	fresh        bool
	usedFallback bool
	errMsg       string
}

// RunCycle executes one fetch-normalize-merge-export cycle. Exchangers are
// fetched concurrently; each one's failure is independent and falls back
// to cached data. A feed is always published, even when empty. The
// returned error is ErrNoData when nothing usable was produced, or the
// export error when publication failed; both are non-fatal in continuous
// mode.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	cycleStart := time.Now()
	s.log.WithField("exchangers", len(s.fetchers)).Info("starting refresh cycle")

	resultCh := make(chan fetcher.Result, len(s.fetchers))
	var wg sync.WaitGroup

	for _, f := range s.fetchers {
		wg.Add(1)
		go func(f fetcher.Fetcher) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			records, err := f.Fetch(fetchCtx)
			resultCh <- fetcher.Result{
				ExchangerID: f.ExchangerID(),
				Records:     records,
				Err:         err,
			}
		}(f)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]fetcher.Result, len(s.fetchers))
	for result := range resultCh {
		results[result.ExchangerID] = result
	}

	// Merge in configured order so the feed is deterministic regardless
	// of fetch completion order.
	now := time.Now()
	merged := make([]feed.RateEntry, 0, 64)
	contributions := make(map[string]contribution, len(s.fetchers))
	freshCount := 0

	for _, f := range s.fetchers {
		id := f.ExchangerID()
		c := s.resolve(id, results[id], now)
		contributions[id] = c
		merged = append(merged, c.entries...)
		if c.fresh {
			freshCount++
		}
	}

	current := feed.Feed{GeneratedAt: now, Entries: merged}

	var publishErr error
	data, err := exporter.Render(current)
	if err != nil {
		publishErr = err
		s.log.Errorf("failed to render feed: %v", err)
	} else if err := exporter.Publish(data, s.cfg.OutputPath); err != nil {
		publishErr = err
		s.log.Errorf("failed to publish feed, previous artifact remains: %v", err)
	}

	s.finishCycle(now, current, data, contributions, freshCount, publishErr)

	s.log.WithFields(logrus.Fields{
		"entries":  current.Count(),
		"fresh":    freshCount,
		"duration": time.Since(cycleStart).String(),
	}).Info("refresh cycle complete")

	if publishErr != nil {
		return publishErr
	}
	if freshCount == 0 && current.Count() == 0 {
		return ErrNoData
	}
	return nil
}

// resolve turns one exchanger's fetch result into its feed contribution,
// applying the fallback policy on failure.
func (s *Scheduler) resolve(id string, result fetcher.Result, now time.Time) contribution {
	log := s.log.WithField("exchanger", id)

	failReason := ""
	var entries []feed.RateEntry

	if result.Err != nil {
		failReason = result.Err.Error()
		log.Warnf("fetch failed: %v", result.Err)
	} else {
		res := s.norm.Normalize(result.Records, id)
		if s.metrics != nil && res.Skipped > 0 {
			s.metrics.SkippedRecords.WithLabelValues(id).Add(float64(res.Skipped))
		}
		if res.Skipped > 0 {
			log.WithField("skipped", res.Skipped).Warn("skipped unparseable records")
		}

		switch {
		case len(res.Entries) == 0:
			failReason = "no entries after normalization"
		case s.skipRatioExceeded(res, len(result.Records)):
			failReason = "skip ratio threshold exceeded"
			log.WithFields(logrus.Fields{
				"skipped": res.Skipped,
				"total":   len(result.Records),
			}).Warn("demoting exchanger: too many unparseable records")
		default:
			entries = res.Entries
		}
	}

	if failReason == "" {
		s.store.Put(feed.Snapshot{
			ExchangerID: id,
			Entries:     entries,
			FetchedAt:   now,
			Success:     true,
		})
		if s.metrics != nil {
			s.metrics.RecordSuccess(id, now, len(entries))
		}
		return contribution{entries: entries, fresh: true}
	}

	// Fallback: reuse the last successful snapshot when one exists. The
	// cache is not overwritten; its FetchedAt keeps reporting real age.
	if snap, ok := s.store.Get(id); ok {
		age := now.Sub(snap.FetchedAt)
		log.WithField("age", age.String()).Warnf("using cached data: %s", failReason)
		return contribution{entries: snap.Entries, usedFallback: true, errMsg: failReason}
	}

	log.Warnf("no cached data available, contributing zero entries: %s", failReason)
	return contribution{errMsg: failReason}
}

func (s *Scheduler) skipRatioExceeded(res normalizer.Result, total int) bool {
	if s.cfg.MaxSkipRatio >= 1 || total == 0 {
		return false
	}
	return float64(res.Skipped)/float64(total) > s.cfg.MaxSkipRatio
}

// finishCycle folds the cycle outcome into the externally visible state.
func (s *Scheduler) finishCycle(now time.Time, current feed.Feed, data []byte, contributions map[string]contribution, freshCount int, publishErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastCycleAt = now
	s.status.CycleCount++
	s.status.FreshExchangers = freshCount
	s.status.LastError = ""
	if publishErr != nil {
		s.status.LastError = publishErr.Error()
	}

	for id, c := range contributions {
		st := s.byID[id]
		if st == nil {
			continue
		}
		st.Entries = len(c.entries)
		st.Stale = c.usedFallback
		st.LastError = c.errMsg
		if c.fresh {
			st.LastSuccess = now
			st.ConsecutiveFailures = 0
		} else {
			st.ConsecutiveFailures++
			if s.metrics != nil {
				s.metrics.RecordFailure(id, st.ConsecutiveFailures, len(c.entries), c.usedFallback)
			}
		}
	}

	if publishErr == nil {
		s.artifact = data
		s.generatedAt = current.GeneratedAt
		s.status.LastPublishAt = now
		s.status.PublishedEntries = current.Count()
		if s.metrics != nil {
			s.metrics.PublishedEntries.Set(float64(current.Count()))
			s.metrics.TotalEntriesServed.Add(float64(current.Count()))
			if current.Count() == 0 {
				s.metrics.Cycles.WithLabelValues("empty").Inc()
			} else {
				s.metrics.Cycles.WithLabelValues("ok").Inc()
			}
		}
	} else if s.metrics != nil {
		s.metrics.Cycles.WithLabelValues("publish_error").Inc()
	}
}

// Run executes cycles on the configured interval until ctx is cancelled.
// The in-flight cycle always finishes before Run returns: cancellation
// makes pending fetches fail fast and fall back, but the export still
// happens.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithField("interval", s.cfg.Interval.String()).Info("refresh loop started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.RunCycle(ctx); err != nil {
			s.log.Warnf("cycle finished without publishing fresh data: %v", err)
		}

		select {
		case <-ctx.Done():
			s.log.Info("refresh loop stopping")
			return
		case <-ticker.C:
		}
	}
}

// Artifact returns the last published artifact bytes and the feed's
// generation time. The slice must not be modified by callers.
func (s *Scheduler) Artifact() ([]byte, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact, s.generatedAt
}

// Status returns a copy of the scheduler's externally visible state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	st.Exchangers = make([]ExchangerStatus, len(s.status.Exchangers))
	copy(st.Exchangers, s.status.Exchangers)
	return st
}

// Healthy reports whether the last cycle produced at least one fresh
// exchanger within the freshness threshold.
func (s *Scheduler) Healthy(threshold time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status.LastCycleAt.IsZero() {
		return false
	}
	return now.Sub(s.status.LastCycleAt) <= threshold && s.status.FreshExchangers > 0
}
