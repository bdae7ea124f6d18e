package vectorstore

import (
	"context"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/database/milvus"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
)

// MilvusStore is an adapter for the project's Milvus client to implement the PersistedIndex interface.
// Every source shares one collection and is filtered by its source key.
type MilvusStore struct {
	log    *logger.Logger
	client *milvus.MilvusClient
}

// NewMilvusStore creates a new MilvusStore and makes sure the collection exists.
func NewMilvusStore(ctx context.Context, milvusClient *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &MilvusStore{log: log, client: milvusClient}, nil
}

// Save replaces the chunks stored for the source.
func (s *MilvusStore) Save(ctx context.Context, sourceKey string, chunks []*schema.Chunk) error {
	if err := s.client.DeleteSource(ctx, sourceKey); err != nil {
		return err
	}
	stored := make([]milvus.StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = milvus.StoredChunk{ID: c.ID, Index: c.Index, Text: c.Text, Embedding: c.Embedding}
	}
	if err := s.client.InsertChunks(ctx, sourceKey, stored); err != nil {
		return err
	}
	s.log.WithPayload(map[string]interface{}{"source": sourceKey, "chunks": len(chunks)}).Info("Stored chunks in Milvus")
	return nil
}

// Load reads back every chunk of the source in order.
func (s *MilvusStore) Load(ctx context.Context, sourceKey string) ([]*schema.Chunk, error) {
	stored, err := s.client.LoadChunks(ctx, sourceKey)
	if err != nil {
		return nil, err
	}
	chunks := make([]*schema.Chunk, len(stored))
	for i, c := range stored {
		chunks[i] = &schema.Chunk{ID: c.ID, Index: c.Index, Text: c.Text, Embedding: c.Embedding}
	}
	return chunks, nil
}

// Delete removes every chunk of the source.
func (s *MilvusStore) Delete(ctx context.Context, sourceKey string) error {
	return s.client.DeleteSource(ctx, sourceKey)
}

// Ref implements interfaces.PersistedIndex.
func (s *MilvusStore) Ref() string {
	return "milvus:" + s.client.Config.Collection
}

// compile-time check to ensure MilvusStore implements the PersistedIndex interface
var _ interfaces.PersistedIndex = (*MilvusStore)(nil)
