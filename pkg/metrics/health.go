package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus is the JSON body served by the health endpoints.
type HealthStatus struct {
	Status    string    `json:"status"` // "healthy", "not_ready"
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	StartTime time.Time `json:"-"`
}

var health = &healthState{startTime: time.Now()}

// healthState tracks whether a Router is currently bound. It is
// intentionally narrow - the Mux has exactly one dependency worth
// reporting on, unlike a multi-component host.
type healthState struct {
	mu        sync.RWMutex
	ready     bool
	version   string
	startTime time.Time
}

// SetVersion sets the version string reported by the health endpoints.
func SetVersion(version string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.version = version
}

// SetReady records whether the Router is currently bound. Call with
// true after Router.Bind succeeds and with false after Router.Unbind.
func SetReady(ready bool) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.ready = ready
}

// GetHealth returns the current health snapshot.
func GetHealth() HealthStatus {
	health.mu.RLock()
	defer health.mu.RUnlock()

	status := "healthy"
	message := ""
	if !health.ready {
		status = "not_ready"
		message = "router not bound"
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Message:   message,
		Version:   health.version,
		Uptime:    time.Since(health.startTime).String(),
		StartTime: health.startTime,
	}
}

// HealthHandler serves /healthz: always 200 once the process is up,
// reporting readiness in the body.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := GetHealth()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}
}

// ReadyHandler serves /readyz: 503 until the Router is bound.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := GetHealth()
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}

// LivenessHandler serves /livez: a bare process-is-running check.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(health.startTime).String(),
		})
	}
}
