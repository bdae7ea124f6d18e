package pipeline

import (
	"context"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
)

// RetrievalPipeline finds the chunks of an index most similar to a query.
type RetrievalPipeline struct {
	embedder interfaces.EmbeddingModel
	log      *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(embedder interfaces.EmbeddingModel, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{embedder: embedder, log: log}
}

// Run embeds the query and returns up to topK chunks, most similar first.
func (p *RetrievalPipeline) Run(ctx context.Context, index *vectorstore.MemoryIndex, query string, topK int) ([]*schema.Chunk, error) {
	if index == nil || index.Len() == 0 {
		return nil, nil
	}

	// 1. Embed the query
	queryEmbeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil || len(queryEmbeddings) == 0 {
		p.log.Error(fmt.Sprintf("Failed to embed query: %v", err))
		return nil, apperr.Wrap(apperr.ServiceUnavailable, "failed to embed query", err)
	}

	// 2. Query the index
	docs := index.Search(queryEmbeddings[0], topK)
	p.log.Debug(fmt.Sprintf("Retrieved %d chunks", len(docs)))
	return docs, nil
}
