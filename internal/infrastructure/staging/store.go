package staging

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
)

var ErrObjectNotFound = errors.New("staged object not found")

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv"
)

// ObjectStore is a flat key/value blob store.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

func JSONKey(name string) string { return "json_files/" + name + ".json" }

func CSVKey(name string) string { return "csv_files/" + name + ".csv" }

// Stager keeps raw documents and CSV batches under the staging key layout.
// Objects are not locked; runs sharing one store overwrite each other.
type Stager struct {
	store  ObjectStore
	logger *logging.Logger
}

func NewStager(store ObjectStore, logger *logging.Logger) *Stager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Stager{store: store, logger: logger.Named("staging")}
}

func (s *Stager) PutJSON(ctx context.Context, name string, raw []byte) error {
	key := JSONKey(name)
	if err := s.store.Put(ctx, key, raw, contentTypeJSON); err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "staged raw document", "key", key, "bytes", len(raw))
	return nil
}

func (s *Stager) GetJSON(ctx context.Context, name string) ([]byte, error) {
	key := JSONKey(name)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read staged %s: %w", key, err)
	}
	return raw, nil
}

func (s *Stager) PutBatch(ctx context.Context, name string, batch *record.Batch) error {
	key := CSVKey(name)
	data, err := EncodeCSV(batch)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Put(ctx, key, data, contentTypeCSV); err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "staged batch", "key", key, "table", batch.Table(), "rows", batch.Len())
	return nil
}

func (s *Stager) GetBatch(ctx context.Context, name string, schema record.Schema) (*record.Batch, error) {
	key := CSVKey(name)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read staged %s: %w", key, err)
	}
	batch, err := DecodeCSV(data, schema)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return batch, nil
}
