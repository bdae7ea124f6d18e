package pipeline

import (
	"context"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// IndexingPipeline orchestrates the process of splitting, embedding, and storing a source text.
type IndexingPipeline struct {
	splitter  interfaces.Splitter
	embedder  interfaces.EmbeddingModel
	persisted interfaces.PersistedIndex
	log       *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline. persisted may be nil, in which case
// the index only lives in memory.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	persisted interfaces.PersistedIndex,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		splitter:  splitter,
		embedder:  embedder,
		persisted: persisted,
		log:       log,
	}
}

// Run executes the entire indexing pipeline for one source and returns the in-memory index.
func (p *IndexingPipeline) Run(ctx context.Context, sourceKey, text string) (*vectorstore.MemoryIndex, error) {
	log := p.log.WithField("source", sourceKey)
	log.Info("Starting indexing")

	// 1. Split the text into chunks
	chunks, err := p.splitter.Split(ctx, text)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to split text: %v", err))
		return nil, apperr.Wrap(apperr.Internal, "failed to split text", err)
	}
	if len(chunks) == 0 {
		return nil, apperr.New(apperr.EmptyContent, "no text to index")
	}
	log.Info(fmt.Sprintf("Split into %d chunks", len(chunks)))

	// 2. Embed the chunks
	embeddings, err := p.embedder.Embed(ctx, schema.Texts(chunks))
	if err != nil {
		log.Error(fmt.Sprintf("Failed to embed chunks: %v", err))
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "embedding service failed", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, apperr.Newf(apperr.Internal, "got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}

	// 3. Build the in-memory index and persist the chunks concurrently
	var index *vectorstore.MemoryIndex
	eg, gCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		index = vectorstore.NewMemoryIndex(chunks)
		return nil
	})

	if p.persisted != nil {
		eg.Go(func() error {
			if err := p.persisted.Save(gCtx, sourceKey, chunks); err != nil {
				log.Error(fmt.Sprintf("Failed to persist chunks: %v", err))
				return apperr.Wrap(apperr.Internal, "failed to persist index", err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Info(fmt.Sprintf("Successfully indexed %d chunks", index.Len()))
	return index, nil
}
