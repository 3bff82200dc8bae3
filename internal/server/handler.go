package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/types"
)

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) error

// RunFunc executes one workflow run for POST /v1/run.
type RunFunc func(ctx context.Context, req RunRequest) (any, error)

// RunRequest is the /v1/run body.
type RunRequest struct {
	Input    string `json:"input"`
	ThreadID string `json:"thread_id,omitempty"`
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// Run serves POST /v1/run when set.
	Run RunFunc
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Checks are run on every /healthz request.
	Checks map[string]Checker
	// CheckTimeout bounds each check. Defaults to two seconds.
	CheckTimeout time.Duration
	Logger       *zap.Logger
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHandler builds the operational routes.
func NewHandler(opts HandlerOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 2 * time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler(opts))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	if opts.Run != nil {
		mux.HandleFunc("POST /v1/run", runHandler(opts))
	}
	return mux
}

func runHandler(opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, opts.Logger, http.StatusBadRequest, errorResponse{
				Error: "invalid request body",
				Code:  string(types.ErrCodeValidation),
			})
			return
		}
		if strings.TrimSpace(req.Input) == "" {
			writeJSON(w, opts.Logger, http.StatusBadRequest, errorResponse{
				Error: "input is required",
				Code:  string(types.ErrCodeValidation),
			})
			return
		}

		result, err := opts.Run(r.Context(), req)
		if err != nil {
			code := types.GetErrorCode(err)
			status := http.StatusInternalServerError
			switch code {
			case types.ErrCodeValidation:
				status = http.StatusBadRequest
			case types.ErrCodeNotFound:
				status = http.StatusNotFound
			}
			opts.Logger.Error("workflow run failed", zap.Error(err))
			writeJSON(w, opts.Logger, status, errorResponse{Error: err.Error(), Code: string(code)})
			return
		}
		writeJSON(w, opts.Logger, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

func healthHandler(opts HandlerOptions) http.HandlerFunc {
	names := make([]string, 0, len(opts.Checks))
	for name := range opts.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		code := http.StatusOK

		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), opts.CheckTimeout)
			err := opts.Checks[name](ctx)
			cancel()

			if err != nil {
				opts.Logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		writeJSON(w, opts.Logger, code, resp)
	}
}
