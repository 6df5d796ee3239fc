package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Check is one readiness dependency. A nil Ping is skipped.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	checks   []Check
	timeout  time.Duration
	draining atomic.Bool
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Drain makes Readyz fail so load balancers stop routing here while the
// server shuts down.
func (h *HealthHandler) Drain() { h.draining.Store(true) }

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready only when the fullnode (and any configured store)
// answers.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining.Load() {
		RespondError(ctx, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	failed := gin.H{}
	for _, c := range h.checks {
		if c.Ping == nil {
			continue
		}
		if err := c.Ping(cctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}

	if len(failed) > 0 {
		RespondError(ctx, http.StatusServiceUnavailable, "not_ready", "Dependencies unavailable", failed)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
