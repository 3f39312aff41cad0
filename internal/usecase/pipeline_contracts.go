package usecase

import (
	"context"

	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/riskibarqy/football-etl/internal/domain/resource"
)

// FetchResponse is the last response obtained for one resource path.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Attempts   int
}

func (r FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DocumentFetcher retrieves raw documents from the football data provider.
type DocumentFetcher interface {
	Fetch(ctx context.Context, path string) (FetchResponse, error)
}

// DocumentNormalizer flattens one raw document into record batches.
type DocumentNormalizer interface {
	Normalize(d resource.Descriptor, raw []byte) ([]*record.Batch, error)
	CompetitionDetails(docs [][]byte) (*record.Batch, error)
}

// StagingStore persists raw documents and batches between stages.
type StagingStore interface {
	PutJSON(ctx context.Context, name string, raw []byte) error
	PutBatch(ctx context.Context, name string, batch *record.Batch) error
	GetBatch(ctx context.Context, name string, schema record.Schema) (*record.Batch, error)
}

// BatchLoader replaces table contents with the given batches in one transaction.
type BatchLoader interface {
	LoadAll(ctx context.Context, batches []*record.Batch) error
}

// RunObserver receives the final report of every run that started.
type RunObserver interface {
	ObserveRun(report RunReport)
}
