package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports progress of the current validation run over HTTP,
// useful when a long grid search runs unattended.
type HealthChecker struct {
	mu             sync.RWMutex
	phase          string
	foldsCompleted int
	foldsTotal     int
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Phase          string    `json:"phase"`
	FoldsCompleted int       `json:"folds_completed"`
	FoldsTotal     int       `json:"folds_total"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		phase:  "idle",
		errors: make([]string, 0),
	}
}

// SetPhase updates the reported pipeline phase.
func (h *HealthChecker) SetPhase(phase string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = phase
}

// SetFoldProgress updates the fold counters.
func (h *HealthChecker) SetFoldProgress(completed, total int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.foldsCompleted = completed
	h.foldsTotal = total
}

// RecordError appends an error to the health report.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		Phase:          h.phase,
		FoldsCompleted: h.foldsCompleted,
		FoldsTotal:     h.foldsTotal,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
