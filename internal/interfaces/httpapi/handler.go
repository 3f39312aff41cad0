package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
	"github.com/riskibarqy/football-etl/internal/usecase"
)

const maxRequestBodyBytes = 64 << 10

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// PipelineRunner is the orchestrator surface the handler drives.
type PipelineRunner interface {
	Invoke(ctx context.Context) usecase.InvocationResult
	State() usecase.RunState
}

type Handler struct {
	pipeline  PipelineRunner
	pool      *ants.Pool
	logger    *logging.Logger
	validator *validator.Validate
}

// NewHandler builds the handler with a single-worker pool for async runs.
// Submissions while the worker is busy are rejected, not queued.
func NewHandler(pipeline PipelineRunner, logger *logging.Logger) (*Handler, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("%w: pipeline runner is required", usecase.ErrInvalidInput)
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create pipeline worker pool: %w", err)
	}

	return &Handler{
		pipeline:  pipeline,
		pool:      pool,
		logger:    logger.Named("httpapi"),
		validator: validator.New(),
	}, nil
}

// Close waits for an in-flight async run and releases the worker pool.
func (h *Handler) Close(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		return h.pool.ReleaseTimeout(time.Until(deadline))
	}
	h.pool.Release()
	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{
		"status":         "ok",
		"pipeline_state": string(h.pipeline.State()),
	})
}

type runPipelineRequest struct {
	Async      bool   `json:"async"`
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=128,printascii"`
}

type asyncRunAccepted struct {
	Message    string `json:"message"`
	DispatchID string `json:"dispatch_id,omitempty"`
}

func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPipeline")
	defer span.End()

	req, err := decodeRunPipelineRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if !req.Async {
		result := h.pipeline.Invoke(ctx)
		if result.StatusCode != http.StatusOK {
			h.logger.WarnContext(ctx, "pipeline run finished with error", "dispatch_id", req.DispatchID, "status", result.StatusCode, "message", result.Message)
		}
		writeJSON(ctx, w, result.StatusCode, result)
		return
	}

	// The run outlives the request but keeps its trace context.
	runCtx := context.WithoutCancel(ctx)
	err = h.pool.Submit(func() {
		result := h.pipeline.Invoke(runCtx)
		h.logger.InfoContext(runCtx, "async pipeline run finished",
			"dispatch_id", req.DispatchID,
			"status", result.StatusCode,
			"message", result.Message,
		)
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			writeError(ctx, w, fmt.Errorf("%w: a pipeline run is already queued or running", usecase.ErrRunInProgress))
			return
		}
		writeError(ctx, w, fmt.Errorf("%w: submit pipeline run: %v", usecase.ErrDependencyUnavailable, err))
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, asyncRunAccepted{
		Message:    "pipeline run accepted",
		DispatchID: req.DispatchID,
	})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeRunPipelineRequest treats an empty body as a synchronous run.
func decodeRunPipelineRequest(r *http.Request) (runPipelineRequest, error) {
	var req runPipelineRequest
	if r.Body == nil {
		return req, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return req, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return req, nil
	}
	if err := strictJSON.Unmarshal(raw, &req); err != nil {
		return runPipelineRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	req.DispatchID = strings.TrimSpace(req.DispatchID)
	return req, nil
}
