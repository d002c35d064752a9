package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hilthontt/roomkeeper/internal/infrastructure/json"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Handler struct {
	startedAt time.Time
	checks    map[string]Check
}

func NewHandler(checks map[string]Check) *Handler {
	return &Handler{
		startedAt: time.Now(),
		checks:    checks,
	}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, h.response("ok", nil))
}

// GetReady runs every dependency check and answers 503 if any fails.
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	json.Write(w, status, h.response(state, results))
}

func (h *Handler) response(status string, checks map[string]string) healthResponse {
	now := time.Now().UTC()
	return healthResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		Uptime:    now.Sub(h.startedAt).Round(time.Second).String(),
		Checks:    checks,
	}
}
