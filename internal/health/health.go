// Package health implements liveness and readiness HTTP handlers:
// /livez always reports the process is up, /readyz reports whether the
// registered checkers (bus reachability, actor registry population)
// currently pass.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/flighthook/flighthook/internal/log"
)

// Status is the outcome of one checker or the aggregate response.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is one checker's outcome.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the JSON body for both /livez and /readyz.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one readiness dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates checkers behind ServeLive/ServeReady.
type Manager struct {
	checkers []Checker
}

// NewManager constructs an empty Manager; use RegisterChecker to add
// dependencies before mounting ServeReady.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterChecker adds a readiness dependency.
func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

func (m *Manager) evaluate(ctx context.Context) Response {
	resp := Response{Status: StatusHealthy, Ready: true, Timestamp: time.Now()}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		result := c.Check(ctx)
		resp.Checks[c.Name()] = result
		if result.Status == StatusUnhealthy {
			resp.Status = StatusUnhealthy
			resp.Ready = false
		} else if result.Status == StatusDegraded && resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}
	return resp
}

// ServeLive always reports the process is up: liveness never depends
// on downstream state, only on the handler being reachable at all.
func (m *Manager) ServeLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: StatusHealthy, Ready: true, Timestamp: time.Now()})
}

// ServeReady runs every registered checker and reports 503 if any is
// unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.evaluate(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		healthLogger := log.WithComponent("health")
		healthLogger.Error().Err(err).Msg("failed to encode health response")
	}
}

// BusChecker reports unhealthy once poller reports the bus has shut
// down, the one failure mode a broadcast bus with no persistent
// connection state can have.
type BusChecker struct {
	poll func() error
}

// NewBusChecker wraps a receiver's Poll-adjacent shutdown check.
// isShutdown should report whether the bus's shared shutdown flag is
// set.
func NewBusChecker(isShutdown func() bool) *BusChecker {
	return &BusChecker{poll: func() error {
		if isShutdown() {
			return errShutdown
		}
		return nil
	}}
}

var errShutdown = &shutdownError{}

type shutdownError struct{}

func (*shutdownError) Error() string { return "bus is shut down" }

func (c *BusChecker) Name() string { return "bus" }

func (c *BusChecker) Check(ctx context.Context) CheckResult {
	if err := c.poll(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// RegistryChecker reports degraded when no actors are running: the
// process is alive and the bus works, but nothing configured is
// actually supervised.
type RegistryChecker struct {
	count func() int
}

// NewRegistryChecker wraps a function reporting the current number of
// supervised actors.
func NewRegistryChecker(count func() int) *RegistryChecker {
	return &RegistryChecker{count: count}
}

func (c *RegistryChecker) Name() string { return "registry" }

func (c *RegistryChecker) Check(ctx context.Context) CheckResult {
	n := c.count()
	if n == 0 {
		return CheckResult{Status: StatusDegraded, Message: "no actors currently supervised"}
	}
	return CheckResult{Status: StatusHealthy, Message: "actors supervised"}
}
