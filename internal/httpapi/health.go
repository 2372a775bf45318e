package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goExpense/internal/logger"
)

const healthTimeout = 2 * time.Second

func (h *handlers) livez(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// healthz probes every dependency concurrently. Any failure makes the response 503.
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		checks  = make(map[string]string, len(h.opts.HealthChecks))
	)
	for _, hc := range h.opts.HealthChecks {
		wg.Add(1)
		go func(hc HealthCheck) {
			defer wg.Done()
			err := hc.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				checks[hc.Name] = "down"
				logger.From(r.Context()).WarnContext(r.Context(), "health check failed", "check", hc.Name, "error", err)
				return
			}
			checks[hc.Name] = "ok"
		}(hc)
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
