package usecase

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/riskibarqy/football-etl/internal/domain/resource"
	"github.com/riskibarqy/football-etl/internal/domain/table"
	"github.com/riskibarqy/football-etl/internal/infrastructure/staging"
	"github.com/riskibarqy/football-etl/internal/normalizer"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
)

const (
	testMatchesDoc = `{"matches":[
	  {"id":1,"homeTeam":{"name":"Chelsea FC","id":61},"awayTeam":{"name":"Arsenal FC","id":57},
	   "score":{"winner":"HOME_TEAM","fullTime":{"home":2,"away":1}},"referees":[]},
	  {"id":2,"homeTeam":{"name":"Liverpool FC","id":64},"awayTeam":{"name":"Chelsea FC","id":61},
	   "score":{"winner":"DRAW","fullTime":{"home":1,"away":1}},"referees":[{"name":"Anthony Taylor","nationality":"England"}]},
	  {"id":3,"homeTeam":{"name":"Chelsea FC","id":61},"awayTeam":{"name":"Brentford FC","id":402}}
	]}`
	testTeamDoc      = `{"id":61,"name":"Chelsea FC","squad":[{"id":1,"name":"Robert Sánchez"},{"id":2,"name":"Cole Palmer"}]}`
	testPremierDoc   = `{"filters":{"season":"2024"},"competition":{"id":2021},"standings":[{"stage":"REGULAR_SEASON","type":"TOTAL","table":[{"position":1,"team":{"id":64}},{"position":2,"team":{"id":61}},{"position":3,"team":{"id":57}}]}]}`
	testChampionsDoc = `{"filters":{"season":"2024"},"competition":{"id":2001},"standings":[]}`
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]FetchResponse
	errs      map[string]error
	calls     []string
}

func newFakeFetcher(catalog []resource.Descriptor) *fakeFetcher {
	bodies := map[string]string{
		"ChelseaMatches":           testMatchesDoc,
		"ChelseaTeamDetails":       testTeamDoc,
		"PremierLeagueStandings":   testPremierDoc,
		"ChampionsLeagueStandings": testChampionsDoc,
	}
	f := &fakeFetcher{responses: map[string]FetchResponse{}, errs: map[string]error{}}
	for _, item := range catalog {
		f.responses[item.Path] = FetchResponse{URL: item.Path, StatusCode: http.StatusOK, Body: []byte(bodies[item.Name]), Attempts: 1}
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, path string) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	if err := f.errs[path]; err != nil {
		return FetchResponse{}, err
	}
	return f.responses[path], nil
}

type fakeLoader struct {
	mu      sync.Mutex
	tables  map[string]int
	order   []string
	calls   int
	err     error
	release chan struct{}
	entered chan struct{}
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{tables: map[string]int{}}
}

func (l *fakeLoader) LoadAll(_ context.Context, batches []*record.Batch) error {
	if l.entered != nil {
		close(l.entered)
	}
	if l.release != nil {
		<-l.release
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	for _, batch := range batches {
		l.tables[batch.Table()] = batch.Len()
		l.order = append(l.order, batch.Table())
	}
	return nil
}

func newTestPipeline(t *testing.T, fetcher DocumentFetcher, stager StagingStore, loader BatchLoader) *PipelineService {
	t.Helper()
	svc, err := NewPipelineService(
		fetcher,
		normalizer.New(logging.NewNop()),
		stager,
		loader,
		PipelineConfig{Resources: resource.DefaultCatalog(resource.DefaultCatalogConfig())},
		logging.NewNop(),
	)
	if err != nil {
		t.Fatalf("new pipeline service: %v", err)
	}
	return svc
}

func TestPipelineService_RunLoadsEveryTable(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	fetcher := newFakeFetcher(catalog)
	loader := newFakeLoader()
	svc := newTestPipeline(t, fetcher, nil, loader)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.State != StateCommitted || svc.State() != StateCommitted {
		t.Fatalf("expected committed state, got report=%s svc=%s", report.State, svc.State())
	}
	if !strings.HasPrefix(report.RunID, "run_") {
		t.Fatalf("expected generated run id, got %q", report.RunID)
	}

	want := map[string]int{
		table.ChelseaMatches:           3,
		table.ChelseaTeamDetails:       1,
		table.ChelseaPlayers:           2,
		table.PremierLeagueStandings:   3,
		table.ChampionsLeagueStandings: 0,
		table.CompetitionDetails:       2,
	}
	for name, rows := range want {
		if loader.tables[name] != rows {
			t.Fatalf("table %s: expected %d rows, got=%d", name, rows, loader.tables[name])
		}
		if report.Rows(name) != rows {
			t.Fatalf("report %s: expected %d rows, got=%d", name, rows, report.Rows(name))
		}
	}

	if strings.Join(loader.order, ",") != strings.Join(table.LoadOrder, ",") {
		t.Fatalf("unexpected load order %v", loader.order)
	}
	if len(fetcher.calls) != len(catalog) || fetcher.calls[0] != catalog[0].Path {
		t.Fatalf("unexpected fetch calls %v", fetcher.calls)
	}

	first := report.Transitions[1]
	if first.State != StateFetching || first.Resource != "ChelseaMatches" {
		t.Fatalf("unexpected first transition %+v", first)
	}
}

func TestPipelineService_FetchErrorFailsRunWithoutLoading(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	fetcher := newFakeFetcher(catalog)
	transportErr := errors.New("connection reset by peer")
	fetcher.errs[catalog[1].Path] = transportErr
	loader := newFakeLoader()
	svc := newTestPipeline(t, fetcher, nil, loader)

	report, err := svc.Run(context.Background())
	if !errors.Is(err, transportErr) {
		t.Fatalf("expected transport error to propagate, got %v", err)
	}
	if report.State != StateFailed {
		t.Fatalf("expected failed state, got=%s", report.State)
	}
	if loader.calls != 0 {
		t.Fatalf("loader must not run after a fetch failure")
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("run must stop at the failing resource, calls=%v", fetcher.calls)
	}
}

func TestPipelineService_NonSuccessStatusIsRejected(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	fetcher := newFakeFetcher(catalog)
	fetcher.responses[catalog[2].Path] = FetchResponse{StatusCode: http.StatusTooManyRequests, Body: []byte(`{"message":"slow down"}`), Attempts: 3}
	loader := newFakeLoader()
	svc := newTestPipeline(t, fetcher, nil, loader)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	if loader.calls != 0 {
		t.Fatalf("loader must not run after a rejected response")
	}
}

func TestPipelineService_LoadErrorPropagatesUnchanged(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	loader := newFakeLoader()
	loader.err = record.ErrSchemaMismatch
	svc := newTestPipeline(t, newFakeFetcher(catalog), nil, loader)

	report, err := svc.Run(context.Background())
	if !errors.Is(err, record.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if report.State != StateFailed || report.Error == "" {
		t.Fatalf("expected failed report with error, got %+v", report)
	}
	if len(report.Tables) != 0 {
		t.Fatalf("failed run must not report loaded tables")
	}
}

func TestPipelineService_RunThroughLocalStaging(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := staging.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	loader := newFakeLoader()
	svc := newTestPipeline(t, newFakeFetcher(catalog), staging.NewStager(store, logging.NewNop()), loader)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, path := range []string{
		"json_files/ChelseaMatches.json",
		"json_files/ChampionsLeagueStandings.json",
		"csv_files/ChelseaPlayers.csv",
		"csv_files/CompetitionDetails.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(path))); err != nil {
			t.Fatalf("expected staged file %s: %v", path, err)
		}
	}
	if loader.tables[table.ChelseaMatches] != 3 || loader.tables[table.ChelseaPlayers] != 2 {
		t.Fatalf("staged batches must keep row counts, got %v", loader.tables)
	}
}

func TestPipelineService_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	loader := newFakeLoader()
	loader.entered = make(chan struct{})
	loader.release = make(chan struct{})
	svc := newTestPipeline(t, newFakeFetcher(catalog), nil, loader)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()
	<-loader.entered

	if _, err := svc.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if result := svc.Invoke(context.Background()); result.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while running, got=%d", result.StatusCode)
	}

	close(loader.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestPipelineService_InvokeMapsOutcome(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())

	ok := newTestPipeline(t, newFakeFetcher(catalog), nil, newFakeLoader()).Invoke(context.Background())
	if ok.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got=%d (%s)", ok.StatusCode, ok.Message)
	}

	failing := newFakeLoader()
	failing.err = errors.New("copy failed")
	result := newTestPipeline(t, newFakeFetcher(catalog), nil, failing).Invoke(context.Background())
	if result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got=%d", result.StatusCode)
	}
	if !strings.HasPrefix(result.Message, "Error: ") || !strings.Contains(result.Message, "copy failed") {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestNewPipelineService_ValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := NewPipelineService(nil, nil, nil, nil, PipelineConfig{}, logging.NewNop())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type recordingObserver struct {
	reports []RunReport
}

func (o *recordingObserver) ObserveRun(report RunReport) { o.reports = append(o.reports, report) }

func TestPipelineService_ObserverSeesEveryFinishedRun(t *testing.T) {
	t.Parallel()

	catalog := resource.DefaultCatalog(resource.DefaultCatalogConfig())
	loader := newFakeLoader()
	observer := &recordingObserver{}
	svc, err := NewPipelineService(
		newFakeFetcher(catalog),
		normalizer.New(logging.NewNop()),
		nil,
		loader,
		PipelineConfig{Resources: catalog, Observer: observer},
		logging.NewNop(),
	)
	if err != nil {
		t.Fatalf("new pipeline service: %v", err)
	}

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	loader.err = record.ErrSchemaMismatch
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected second run to fail")
	}

	if len(observer.reports) != 2 {
		t.Fatalf("expected 2 observed runs, got %d", len(observer.reports))
	}
	if observer.reports[0].State != StateCommitted || observer.reports[1].State != StateFailed {
		t.Fatalf("unexpected observed states %s, %s", observer.reports[0].State, observer.reports[1].State)
	}
	if observer.reports[0].RunID == observer.reports[1].RunID {
		t.Fatalf("each run must get its own id")
	}
}
