package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/football-etl/external/footballdata"
	"github.com/riskibarqy/football-etl/internal/config"
	"github.com/riskibarqy/football-etl/internal/domain/resource"
	"github.com/riskibarqy/football-etl/internal/domain/table"
	"github.com/riskibarqy/football-etl/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/football-etl/internal/infrastructure/staging"
	"github.com/riskibarqy/football-etl/internal/interfaces/httpapi"
	"github.com/riskibarqy/football-etl/internal/normalizer"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
	"github.com/riskibarqy/football-etl/internal/platform/resilience"
	"github.com/riskibarqy/football-etl/internal/usecase"
)

// NewPipeline wires fetcher, normalizer, staging and loader into the
// orchestrator according to cfg. observer may be nil.
func NewPipeline(ctx context.Context, cfg config.Config, observer usecase.RunObserver, logger *logging.Logger) (*usecase.PipelineService, error) {
	if logger == nil {
		logger = logging.Default()
	}

	client := footballdata.NewClient(footballdata.ClientConfig{
		BaseURL: cfg.APIURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.APITimeout,
		Retry:   resilience.NewLinearRetryPolicy(cfg.APIMaxRetries, cfg.APIRetryInterval),
		Logger:  logger,
		CircuitBreaker: resilience.NewCircuitBreakerFromConfig(resilience.CircuitBreakerConfig{
			Enabled:          cfg.APICircuitEnabled,
			FailureThreshold: cfg.APICircuitFailureCount,
			OpenTimeout:      cfg.APICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.APICircuitHalfOpenMaxReq,
		}),
	})

	stager, err := newStager(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	connector, err := postgres.NewConnector(cfg.DBURL, cfg.DBSchema)
	if err != nil {
		return nil, err
	}
	loader := postgres.NewBulkLoader(connector, logger)

	resources := resource.DefaultCatalog(resource.CatalogConfig{
		TeamID:            cfg.TeamID,
		PremierLeagueID:   cfg.PremierLeagueID,
		ChampionsLeagueID: cfg.ChampionsLeagueID,
	})

	svc, err := usecase.NewPipelineService(
		client,
		normalizer.New(logger),
		stager,
		loader,
		usecase.PipelineConfig{Resources: resources, LoadOrder: table.LoadOrder, Observer: observer},
		logger,
	)
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline configured",
		"api_url", cfg.APIURL,
		"resources", len(resources),
		"staging_mode", cfg.StagingMode,
		"database", connector.Target(),
		"schema", connector.Schema(),
	)
	return svc, nil
}

// newStager returns a nil interface when staging is disabled so the
// orchestrator keeps batches in memory.
func newStager(ctx context.Context, cfg config.Config, logger *logging.Logger) (usecase.StagingStore, error) {
	switch cfg.StagingMode {
	case config.StagingLocal:
		store, err := staging.NewLocalStore(cfg.StagingDir)
		if err != nil {
			return nil, err
		}
		return staging.NewStager(store, logger), nil
	case config.StagingS3:
		store, err := staging.NewS3Store(ctx, cfg.BucketName, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return staging.NewStager(store, logger), nil
	default:
		return nil, nil
	}
}

// NewHTTPServer exposes the pipeline trigger API, plus /metrics when
// metrics is non-nil. The returned handler must be closed after the server
// shuts down.
func NewHTTPServer(cfg config.Config, pipeline httpapi.PipelineRunner, metrics http.Handler, logger *logging.Logger) (*http.Server, *httpapi.Handler, error) {
	handler, err := httpapi.NewHandler(pipeline, logger)
	if err != nil {
		return nil, nil, err
	}
	router := httpapi.NewRouter(handler, metrics, logger, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		_ = handler.Close(context.Background())
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, handler, nil
}
