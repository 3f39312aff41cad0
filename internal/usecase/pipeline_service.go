package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/riskibarqy/football-etl/internal/domain/resource"
	"github.com/riskibarqy/football-etl/internal/domain/table"
	"github.com/riskibarqy/football-etl/internal/platform/id"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type RunState string

const (
	StateIdle        RunState = "idle"
	StateFetching    RunState = "fetching"
	StateNormalizing RunState = "normalizing"
	StateLoading     RunState = "loading"
	StateCommitted   RunState = "committed"
	StateFailed      RunState = "failed"
)

// Transition is one step of a run; Resource is set while fetching or
// normalizing.
type Transition struct {
	State    RunState `json:"state"`
	Resource string   `json:"resource,omitempty"`
}

type TableReport struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

type RunReport struct {
	RunID       string        `json:"run_id"`
	State       RunState      `json:"state"`
	Resources   int           `json:"resources"`
	Tables      []TableReport `json:"tables"`
	Transitions []Transition  `json:"transitions"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Error       string        `json:"error,omitempty"`
}

// Rows returns the loaded row count for a table, or -1 when it was not loaded.
func (r RunReport) Rows(tableName string) int {
	for _, item := range r.Tables {
		if item.Table == tableName {
			return item.Rows
		}
	}
	return -1
}

type PipelineConfig struct {
	Resources []resource.Descriptor
	// LoadOrder lists tables in the order they are replaced. Tables produced
	// but not listed are loaded afterwards in production order.
	LoadOrder []string
	// Observer is optional.
	Observer RunObserver
}

// PipelineService runs Fetch -> Normalize -> (Stage) -> Load over a fixed
// resource list. One run at a time per service; concurrent runs in other
// processes must be serialized externally.
type PipelineService struct {
	fetcher    DocumentFetcher
	normalizer DocumentNormalizer
	stager     StagingStore
	loader     BatchLoader
	cfg        PipelineConfig
	logger     *logging.Logger
	ids        id.Generator
	now        func() time.Time

	running sync.Mutex
	stateMu sync.RWMutex
	state   RunState
}

// NewPipelineService builds the orchestrator. stager may be nil to keep
// batches in memory only.
func NewPipelineService(
	fetcher DocumentFetcher,
	normalizer DocumentNormalizer,
	stager StagingStore,
	loader BatchLoader,
	cfg PipelineConfig,
	logger *logging.Logger,
) (*PipelineService, error) {
	if fetcher == nil || normalizer == nil || loader == nil {
		return nil, fmt.Errorf("%w: fetcher, normalizer and loader are required", ErrInvalidInput)
	}
	if len(cfg.Resources) == 0 {
		return nil, fmt.Errorf("%w: at least one resource is required", ErrInvalidInput)
	}
	for _, item := range cfg.Resources {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if len(cfg.LoadOrder) == 0 {
		cfg.LoadOrder = table.LoadOrder
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &PipelineService{
		fetcher:    fetcher,
		normalizer: normalizer,
		stager:     stager,
		loader:     loader,
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
		ids:        id.NewRandomGenerator("run_"),
		now:        time.Now,
		state:      StateIdle,
	}, nil
}

func (s *PipelineService) State() RunState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

type pipelineRun struct {
	svc    *PipelineService
	logger *logging.Logger
	report RunReport
	span   trace.Span
}

func (r *pipelineRun) enter(ctx context.Context, state RunState, resourceName string) {
	r.svc.stateMu.Lock()
	r.svc.state = state
	r.svc.stateMu.Unlock()

	r.report.State = state
	r.report.Transitions = append(r.report.Transitions, Transition{State: state, Resource: resourceName})
	if resourceName == "" {
		r.logger.InfoContext(ctx, "pipeline state changed", "state", string(state))
		return
	}
	r.logger.InfoContext(ctx, "pipeline state changed", "state", string(state), "resource", resourceName)
}

func (r *pipelineRun) fail(ctx context.Context, err error) (RunReport, error) {
	r.enter(ctx, StateFailed, "")
	r.report.Error = err.Error()
	r.report.FinishedAt = r.svc.now().UTC()
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, "pipeline run failed")
	r.logger.ErrorContext(ctx, "pipeline run failed", "error", err)
	r.svc.observe(r.report)
	return r.report, err
}

func (s *PipelineService) observe(report RunReport) {
	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveRun(report)
	}
}

// Run executes one full pipeline run. The first failure ends the run and is
// returned wrapped; nothing is committed unless every stage succeeds.
func (s *PipelineService) Run(ctx context.Context) (RunReport, error) {
	if !s.running.TryLock() {
		return RunReport{State: s.State()}, ErrRunInProgress
	}
	defer s.running.Unlock()

	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.Run")
	defer span.End()

	runID, err := s.ids.NewID()
	if err != nil {
		return RunReport{State: s.State()}, fmt.Errorf("generate run id: %w", err)
	}
	span.SetAttributes(attribute.String("pipeline.run_id", runID))

	run := &pipelineRun{
		svc:    s,
		logger: s.logger.With("run_id", runID),
		span:   span,
		report: RunReport{
			RunID:     runID,
			Resources: len(s.cfg.Resources),
			StartedAt: s.now().UTC(),
		},
	}
	run.enter(ctx, StateIdle, "")

	batches, err := s.extract(ctx, run)
	if err != nil {
		return run.fail(ctx, err)
	}

	if s.stager != nil {
		batches, err = s.stage(ctx, batches)
		if err != nil {
			return run.fail(ctx, err)
		}
	}

	run.enter(ctx, StateLoading, "")
	if err := s.loader.LoadAll(ctx, batches); err != nil {
		return run.fail(ctx, fmt.Errorf("load: %w", err))
	}

	run.report.Tables = make([]TableReport, 0, len(batches))
	for _, batch := range batches {
		run.report.Tables = append(run.report.Tables, TableReport{Table: batch.Table(), Rows: batch.Len()})
	}
	run.enter(ctx, StateCommitted, "")
	run.report.FinishedAt = s.now().UTC()
	span.SetAttributes(attribute.Int("pipeline.tables", len(batches)))
	s.observe(run.report)

	return run.report, nil
}

func (s *PipelineService) extract(ctx context.Context, run *pipelineRun) ([]*record.Batch, error) {
	produced := make([]*record.Batch, 0, len(s.cfg.Resources)+1)
	standingsDocs := make([][]byte, 0, 2)

	for _, item := range s.cfg.Resources {
		run.enter(ctx, StateFetching, item.Name)
		resp, err := s.fetcher.Fetch(ctx, item.Path)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", item.Name, err)
		}
		if !resp.OK() {
			return nil, fmt.Errorf("%w: fetch %s returned status %d after %d attempt(s)", ErrUnexpectedStatus, item.Name, resp.StatusCode, resp.Attempts)
		}
		if s.stager != nil {
			if err := s.stager.PutJSON(ctx, item.Name, resp.Body); err != nil {
				return nil, fmt.Errorf("stage %s: %w", item.Name, err)
			}
		}

		run.enter(ctx, StateNormalizing, item.Name)
		batches, err := s.normalizer.Normalize(item, resp.Body)
		if err != nil {
			return nil, err
		}
		produced = append(produced, batches...)
		if item.IsStandings() {
			standingsDocs = append(standingsDocs, resp.Body)
		}
	}

	if len(standingsDocs) > 0 {
		details, err := s.normalizer.CompetitionDetails(standingsDocs)
		if err != nil {
			return nil, err
		}
		produced = append(produced, details)
	}

	return orderBatches(produced, s.cfg.LoadOrder), nil
}

// stage writes every batch to the staging store and reads it back, so the
// loader consumes exactly what was staged.
func (s *PipelineService) stage(ctx context.Context, batches []*record.Batch) ([]*record.Batch, error) {
	out := make([]*record.Batch, 0, len(batches))
	for _, batch := range batches {
		name := table.StagingName(batch.Table())
		if err := s.stager.PutBatch(ctx, name, batch); err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
		staged, err := s.stager.GetBatch(ctx, name, batch.Schema)
		if err != nil {
			return nil, fmt.Errorf("read staged %s: %w", name, err)
		}
		out = append(out, staged)
	}
	return out, nil
}

func orderBatches(batches []*record.Batch, loadOrder []string) []*record.Batch {
	rank := make(map[string]int, len(loadOrder))
	for i, name := range loadOrder {
		rank[name] = i
	}

	ordered := make([]*record.Batch, 0, len(batches))
	for _, name := range loadOrder {
		for _, batch := range batches {
			if batch.Table() == name {
				ordered = append(ordered, batch)
			}
		}
	}
	for _, batch := range batches {
		if _, ok := rank[batch.Table()]; !ok {
			ordered = append(ordered, batch)
		}
	}
	return ordered
}

// InvocationResult is the outcome of a remotely triggered run.
type InvocationResult struct {
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Report     RunReport `json:"report"`
}

func (s *PipelineService) Invoke(ctx context.Context) InvocationResult {
	report, err := s.Run(ctx)
	switch {
	case err == nil:
		return InvocationResult{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("football data loaded into %d table(s)", len(report.Tables)),
			Report:     report,
		}
	case errors.Is(err, ErrRunInProgress):
		return InvocationResult{StatusCode: http.StatusConflict, Message: err.Error(), Report: report}
	default:
		return InvocationResult{StatusCode: http.StatusInternalServerError, Message: "Error: " + err.Error(), Report: report}
	}
}
