// Package health serves the liveness, readiness and status probes of the
// consent service.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"attrconsent/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultCheckTimeout bounds the whole readiness probe.
const DefaultCheckTimeout = 2 * time.Second

// Readiness states.
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

// CheckFunc returns nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

type check struct {
	fn       CheckFunc
	optional bool
}

// Handler serves the probes. The consent repository is a required
// dependency; sinks with a fallback, such as the Kafka audit sink, are
// optional and only degrade readiness.
type Handler struct {
	startTime    time.Time
	store        string
	cipher       func() string
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]check
}

// New creates a handler reporting the repository backend name. cipher
// reports the active cipher and may be nil.
func New(store string, cipher func() string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		store:        store,
		cipher:       cipher,
		checkTimeout: DefaultCheckTimeout,
		checks:       make(map[string]check),
	}
}

// RegisterCheck adds a dependency the service cannot serve without.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn})
}

// RegisterOptional adds a dependency whose failure leaves the service
// degraded but ready.
func (h *Handler) RegisterOptional(name string, fn CheckFunc) {
	h.register(name, check{fn: fn, optional: true})
}

func (h *Handler) register(name string, c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// Register mounts the probes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleStatus)
	r.Get("/healthz/live", h.HandleLiveness)
	r.Get("/healthz/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness answers 200 while the process serves requests.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently under one timeout. A failed
// required check answers 503; a failed optional check answers 200 with
// status degraded.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, c := range checks {
		wg.Go(func() {
			start := time.Now()
			err := c.fn(ctx)
			res := CheckResult{Status: "up", Optional: c.optional, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	resp := ReadinessResponse{Status: StatusReady, Checks: results}
	for _, res := range results {
		if res.Status == "up" {
			continue
		}
		if !res.Optional {
			resp.Status = StatusNotReady
			break
		}
		resp.Status = StatusDegraded
	}

	status := http.StatusOK
	if resp.Status == StatusNotReady {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Store         string `json:"store"`
	Cipher        string `json:"cipher,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus reports version, backend, cipher and uptime. It runs no
// checks.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	res := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Store:         h.store,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if h.cipher != nil {
		res.Cipher = h.cipher()
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
