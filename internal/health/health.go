// Package health serves the relay's liveness and readiness probes.
//
//   - /healthz — liveness; a process that answers HTTP is alive.
//   - /readyz  — readiness; 200 only while every registered [Checker]
//     passes, 503 otherwise.
//
// Responses are JSON with a "status" field ("ok" or "fail") and a per-check
// "checks" map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

// checkTimeout bounds a single readiness probe.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil while the
// dependency is usable.
type Checker struct {
	// Name keys the check's entry in the JSON response (e.g. "gateway").
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// GatewayChecker reports the Discord gateway connection state via the given
// probe, typically a bot's Ready method.
func GatewayChecker(probe func() error) Checker {
	return Checker{
		Name:  "gateway",
		Check: func(context.Context) error { return probe() },
	}
}

// SynthesizerChecker probes the TTS backend with a warmup round trip.
func SynthesizerChecker(s tts.Synthesizer) Checker {
	return Checker{
		Name:  "tts",
		Check: s.Warmup,
	}
}

// StoreChecker probes the preference database. ping is typically
// pgxpool.Pool.Ping.
func StoreChecker(ping func(ctx context.Context) error) Checker {
	return Checker{
		Name:  "store",
		Check: ping,
	}
}

// response is the JSON body served by both endpoints.
type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction; the handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler evaluating the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz always answers 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz answers 200 only when every checker passes. Each check runs under
// a [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}

	res := response{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
