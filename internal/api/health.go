package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler fans readiness checks out to every registered backend.
// The catalog gateway is the only hard dependency; cache, analytics and
// broker outages degrade rather than fail the service, so they report as
// unhealthy components without flipping readiness.
type HealthHandler struct {
	hard   map[string]HealthChecker
	soft   map[string]HealthChecker
	logger *zap.Logger
}

func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		hard:   make(map[string]HealthChecker),
		soft:   make(map[string]HealthChecker),
		logger: logger,
	}
}

// Register adds a hard dependency: readiness fails when it is down.
func (h *HealthHandler) Register(name string, checker HealthChecker) {
	h.hard[name] = checker
}

// RegisterSoft adds a dependency whose outage only degrades the service.
func (h *HealthHandler) RegisterSoft(name string, checker HealthChecker) {
	h.soft[name] = checker
}

type componentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]componentHealth)
	var mu sync.Mutex
	var wg sync.WaitGroup
	hardDown := false

	check := func(name string, checker HealthChecker, hard bool) {
		defer wg.Done()
		start := time.Now()
		err := checker.HealthCheck(ctx)
		ch := componentHealth{
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
		if err != nil {
			ch.Status = "unhealthy"
			ch.Error = err.Error()
		}
		mu.Lock()
		results[name] = ch
		if err != nil && hard {
			hardDown = true
		}
		mu.Unlock()
	}

	for name, checker := range h.hard {
		wg.Add(1)
		go check(name, checker, true)
	}
	for name, checker := range h.soft {
		wg.Add(1)
		go check(name, checker, false)
	}
	wg.Wait()

	status := http.StatusOK
	overall := "healthy"
	if hardDown {
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	} else {
		for _, ch := range results {
			if ch.Status == "unhealthy" {
				overall = "degraded"
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     overall,
		"components": results,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
