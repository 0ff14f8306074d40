package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
)

// ObjectStore fetches a raw object by key.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Extractor maps entity types to their source objects and parses the
// downloads into batches.
type Extractor struct {
	objects ObjectStore
	// keys maps entity name to the object key of its source file.
	keys map[string]string
	log  *logrus.Logger
}

func New(objects ObjectStore, keys map[string]string, log *logrus.Logger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{objects: objects, keys: keys, log: log}
}

// Extract downloads and parses the source batch for one entity type.
func (e *Extractor) Extract(ctx context.Context, desc *entity.Descriptor) (types.Batch, error) {
	key, ok := e.keys[desc.Name]
	if !ok {
		return types.Batch{}, fmt.Errorf("no source object configured for entity %s", desc.Name)
	}
	data, err := e.objects.Fetch(ctx, key)
	if err != nil {
		return types.Batch{}, fmt.Errorf("extract %s: %w", desc.Name, err)
	}
	batch, err := ParseCSV(data, desc)
	if err != nil {
		return types.Batch{}, fmt.Errorf("extract %s: %w", desc.Name, err)
	}
	e.log.WithFields(logrus.Fields{
		"entity": desc.Name,
		"object": key,
		"rows":   batch.Len(),
	}).Info("batch extracted")
	return batch, nil
}

// ExtractAll fetches every entity's source concurrently. Downloads are
// independent of the strictly ordered load steps, so parallelism here is
// safe. The first failure cancels the remaining fetches.
func (e *Extractor) ExtractAll(ctx context.Context, descs []*entity.Descriptor) (map[string]types.Batch, error) {
	var mu sync.Mutex
	batches := make(map[string]types.Batch, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	for _, desc := range descs {
		g.Go(func() error {
			batch, err := e.Extract(gctx, desc)
			if err != nil {
				return err
			}
			mu.Lock()
			batches[desc.Name] = batch
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}
