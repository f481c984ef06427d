package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the JSON response for the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the JSON response for the readiness endpoint.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the result of a single readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker can verify its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadinessChecks holds the dependency checkers for the readiness endpoint.
type ReadinessChecks struct {
	// Required check — always run.
	WorkflowsRegistered func() bool

	// Optional check — only run if non-nil.
	SessionMirror HealthChecker
}

const checkTimeout = 2 * time.Second

// HandleHealth returns an HTTP handler for the liveness endpoint.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:  "ok",
			Version: Version,
			Commit:  Commit,
		})
	}
}

// HandleReady returns an HTTP handler for the readiness endpoint.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make(map[string]CheckResult)
		healthy := true

		start := time.Now()
		if checks.WorkflowsRegistered != nil && checks.WorkflowsRegistered() {
			results["workflows"] = CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		} else {
			healthy = false
			results["workflows"] = CheckResult{
				Status:    "error",
				LatencyMs: time.Since(start).Milliseconds(),
				Error:     "no workflows registered",
			}
		}

		if checks.SessionMirror != nil {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			start = time.Now()
			err := checks.SessionMirror.HealthCheck(ctx)
			cancel()
			if err != nil {
				healthy = false
				results["session_mirror"] = CheckResult{
					Status:    "error",
					LatencyMs: time.Since(start).Milliseconds(),
					Error:     err.Error(),
				}
			} else {
				results["session_mirror"] = CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			}
		}

		status := "ok"
		code := http.StatusOK
		if !healthy {
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(ReadinessResponse{Status: status, Checks: results})
	}
}
