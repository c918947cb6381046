package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/shelfscan/internal/stream"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const readinessTimeout = 10 * time.Second

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type Stats struct {
	Streams       []stream.Status   `json:"streams"`
	Cycles        map[string]uint64 `json:"cycles"`
	TotalRequests uint64            `json:"total_requests"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type StreamsResponse struct {
	Total   int             `json:"total"`
	Streams []stream.Status `json:"streams"`
}

type StreamReporter interface {
	Status() []stream.Status
}

// CycleReporter reports completed capture cycles per domain.
type CycleReporter interface {
	Cycles() map[string]uint64
}

// DetectorProbe reports whether a remote detector answers.
type DetectorProbe interface {
	IsAvailable(ctx context.Context) bool
}

type Dependencies struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Streams StreamReporter
	Cycles  CycleReporter
	// Detectors maps a domain to its remote detector. Empty when inference
	// runs in-process.
	Detectors map[string]DetectorProbe
	Version   string
}

type componentCheck struct {
	name     string
	critical bool
	run      func(context.Context) ComponentStatus
}

type Handler struct {
	deps      Dependencies
	checks    []componentCheck
	startTime time.Time

	totalRequests atomic.Uint64
}

func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		deps:      deps,
		startTime: time.Now(),
	}
	h.checks = []componentCheck{
		{name: "database", critical: true, run: h.checkDatabase},
		{name: "redis", run: h.checkRedis},
		{name: "cameras", critical: true, run: h.checkCameras},
	}
	if len(deps.Detectors) > 0 {
		h.checks = append(h.checks, componentCheck{name: "detectors", run: h.checkDetectors})
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
	e.GET("/health/streams", h.Streams)
}

func (h *Handler) IncrementRequests() {
	h.totalRequests.Add(1)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	components := h.runChecks(ctx)
	overall := h.computeOverallStatus(components)

	resp := HealthResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Version:       h.deps.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Streams:       h.streamStatus(),
			Cycles:        h.cycleCounts(),
			TotalRequests: h.totalRequests.Load(),
		},
		Components: components,
	}

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (h *Handler) runChecks(ctx context.Context) map[string]ComponentStatus {
	results := make([]ComponentStatus, len(h.checks))
	var wg sync.WaitGroup
	for i, chk := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			status := chk.run(ctx)
			status.LatencyMs = time.Since(start).Milliseconds()
			results[i] = status
		}()
	}
	wg.Wait()

	components := make(map[string]ComponentStatus, len(h.checks))
	for i, chk := range h.checks {
		components[chk.name] = results[i]
	}
	return components
}

func (h *Handler) Streams(c echo.Context) error {
	streams := h.streamStatus()
	return c.JSON(http.StatusOK, StreamsResponse{
		Total:   len(streams),
		Streams: streams,
	})
}

func (h *Handler) streamStatus() []stream.Status {
	if h.deps.Streams == nil {
		return []stream.Status{}
	}
	return h.deps.Streams.Status()
}

func (h *Handler) cycleCounts() map[string]uint64 {
	if h.deps.Cycles == nil {
		return map[string]uint64{}
	}
	return h.deps.Cycles.Cycles()
}

func failed(status Status, msg string) ComponentStatus {
	return ComponentStatus{Status: status, Error: msg}
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	if h.deps.DB == nil {
		return failed(StatusUnhealthy, "database not configured")
	}
	sqlDB, err := h.deps.DB.DB()
	if err != nil {
		return failed(StatusUnhealthy, "failed to get underlying db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return failed(StatusUnhealthy, "ping failed")
	}
	return ComponentStatus{Status: StatusHealthy}
}

// checkRedis reports a cache outage as degraded: catalog lookups fall through
// to the database without it.
func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	if h.deps.Redis == nil {
		return failed(StatusDegraded, "redis not configured")
	}
	if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
		return failed(StatusDegraded, "ping failed")
	}
	return ComponentStatus{Status: StatusHealthy}
}

func (h *Handler) checkCameras(_ context.Context) ComponentStatus {
	streams := h.streamStatus()
	if len(streams) == 0 {
		return failed(StatusUnhealthy, "no cameras configured")
	}

	stopped := 0
	for _, s := range streams {
		if s.State == stream.StateStopped.String() {
			stopped++
		}
	}

	switch {
	case stopped == len(streams):
		return failed(StatusUnhealthy, "all cameras stopped")
	case stopped > 0:
		return failed(StatusDegraded, "camera stopped")
	}
	return ComponentStatus{Status: StatusHealthy}
}

// checkDetectors probes every remote detector. An unreachable detector only
// skips its capture cycles, so the feeds and queries stay up.
func (h *Handler) checkDetectors(ctx context.Context) ComponentStatus {
	var down []string
	for domain, probe := range h.deps.Detectors {
		if !probe.IsAvailable(ctx) {
			down = append(down, domain)
		}
	}
	if len(down) == 0 {
		return ComponentStatus{Status: StatusHealthy}
	}
	sort.Strings(down)
	return failed(StatusDegraded, fmt.Sprintf("unreachable: %s", strings.Join(down, ", ")))
}

func (h *Handler) computeOverallStatus(components map[string]ComponentStatus) Status {
	overall := StatusHealthy
	for _, chk := range h.checks {
		status, ok := components[chk.name]
		if !ok || status.Status == StatusHealthy {
			continue
		}
		if chk.critical && status.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		overall = StatusDegraded
	}
	return overall
}
