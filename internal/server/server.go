// Package server exposes the published feed over HTTP, along with health,
// status and metrics endpoints. It only reads the scheduler's published
// state and never triggers fetches itself.
package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ratefeed/internal/exporter"
	"ratefeed/internal/feed"
	"ratefeed/internal/metrics"
	"ratefeed/internal/scheduler"
)

const contentTypeXML = "application/xml; charset=utf-8"

// Server serves the rate feed artifact and service introspection.
type Server struct {
	sched      *scheduler.Scheduler
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	log        logrus.FieldLogger
	outputPath string
	freshness  time.Duration
	startTime  time.Time
}

// New creates a feed server backed by the scheduler's published state.
func New(sched *scheduler.Scheduler, m *metrics.Metrics, registry *prometheus.Registry, outputPath string, freshness time.Duration, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		sched:      sched,
		metrics:    m,
		registry:   registry,
		log:        log,
		outputPath: outputPath,
		freshness:  freshness,
		startTime:  time.Now(),
	}
}

// Routes configures the HTTP routes using Gin.
func (s *Server) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.Feed)
	router.GET("/rates", s.Feed)
	router.GET("/rates.xml", s.Feed)
	router.GET("/health", s.Health)
	router.GET("/status", s.ServiceStatus)

	if s.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	return router
}

// Feed serves the current artifact bytes. Before the first cycle publishes
// anything, a previously persisted artifact is served if one exists on
// disk; otherwise a well-formed empty feed is returned.
func (s *Server) Feed(c *gin.Context) {
	if s.metrics != nil {
		s.metrics.FeedRequests.Inc()
	}

	data, generatedAt := s.sched.Artifact()
	if len(data) == 0 {
		if persisted, err := os.ReadFile(s.outputPath); err == nil && len(persisted) > 0 {
			c.Data(http.StatusOK, contentTypeXML, persisted)
			return
		}
		empty, err := exporter.Render(feed.Feed{GeneratedAt: time.Now()})
		if err != nil {
			s.log.Errorf("failed to render empty feed: %v", err)
			c.String(http.StatusInternalServerError, "feed unavailable")
			return
		}
		c.Data(http.StatusOK, contentTypeXML, empty)
		return
	}

	c.Header("X-Generated-At", generatedAt.Format(time.RFC3339))
	c.Data(http.StatusOK, contentTypeXML, data)
}

// Health reports whether the last cycle produced fresh data within the
// freshness threshold.
func (s *Server) Health(c *gin.Context) {
	st := s.sched.Status()
	healthy := s.sched.Healthy(s.freshness, time.Now())

	code := http.StatusOK
	status := "healthy"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "unhealthy"
	}

	c.JSON(code, gin.H{
		"status":           status,
		"last_cycle_at":    st.LastCycleAt,
		"fresh_exchangers": st.FreshExchangers,
		"uptime":           time.Since(s.startTime).String(),
	})
}

// ServiceStatus returns the detailed scheduler state: per-exchanger last
// success, consecutive failures, staleness and the published feed size.
func (s *Server) ServiceStatus(c *gin.Context) {
	st := s.sched.Status()

	artifactSize := 0
	if info, err := os.Stat(s.outputPath); err == nil {
		artifactSize = int(info.Size())
	}

	c.JSON(http.StatusOK, gin.H{
		"scheduler":           st,
		"output_path":         s.outputPath,
		"artifact_size_bytes": artifactSize,
		"freshness_threshold": s.freshness.String(),
	})
}
