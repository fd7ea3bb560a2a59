package sweep

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"simufolio/internal/workers"
	"simufolio/pkg/logger"
)

// Runner triggers a notification sweep at a given instant.
// Implemented by workers.NotificationSweeper.
type Runner interface {
	RunSweep(ctx context.Context, now time.Time) (workers.SweepReport, error)
}

// Handler exposes the notification sweep as an HTTP trigger so external
// schedulers (cron jobs, platform schedulers) can drive the cadence instead
// of the in-process ticker.
type Handler struct {
	runner Runner
	secret string
	log    *logger.Logger
}

// New creates a sweep trigger handler
func New(runner Runner, secret string, log *logger.Logger) *Handler {
	return &Handler{
		runner: runner,
		secret: secret,
		log:    log.With("component", "sweep_handler"),
	}
}

// ServeHTTP handles POST /internal/sweep
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		h.log.Warnw("Rejected sweep trigger with bad credentials", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	report, err := h.runner.RunSweep(r.Context(), time.Now().UTC())
	if err != nil {
		h.log.Errorw("Triggered sweep failed", "error", err)
		http.Error(w, "sweep failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
