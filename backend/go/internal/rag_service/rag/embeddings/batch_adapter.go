package embeddings

import (
	"context"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/embedding"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 4
)

// BatchAdapter adapts the project's embedding models to the generic EmbeddingModel interface.
// Large inputs are split into batches that are embedded concurrently.
type BatchAdapter struct {
	client      embedding.Embedding
	batchSize   int
	concurrency int
}

// NewBatchAdapter creates a new adapter. Non-positive values use the defaults.
func NewBatchAdapter(client embedding.Embedding, batchSize, concurrency int) *BatchAdapter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &BatchAdapter{client: client, batchSize: batchSize, concurrency: concurrency}
}

// Embed returns one vector per text, in input order.
func (a *BatchAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= a.batchSize {
		return a.embedBatch(ctx, texts)
	}

	out := make([][]float32, len(texts))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)
	for start := 0; start < len(texts); start += a.batchSize {
		start := start
		end := start + a.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		eg.Go(func() error {
			vecs, err := a.embedBatch(gCtx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *BatchAdapter) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := a.client.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// compile-time check to ensure BatchAdapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*BatchAdapter)(nil)
