package interfaces

import (
	"context"

	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
)

// Splitter is the interface for splitting a source text into ordered chunks.
type Splitter interface {
	Split(ctx context.Context, text string) ([]*schema.Chunk, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// PersistedIndex stores the chunks and vectors of each source so an index can be
// rebuilt after it has left the in-memory cache.
type PersistedIndex interface {
	Save(ctx context.Context, sourceKey string, chunks []*schema.Chunk) error
	Load(ctx context.Context, sourceKey string) ([]*schema.Chunk, error)
	Delete(ctx context.Context, sourceKey string) error
	// Ref describes where the chunks live, e.g. "milvus:document_chunks".
	Ref() string
}

// Turn is one message of a chat conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryStore keeps the recent turns of each conversation.
type HistoryStore interface {
	Append(ctx context.Context, key string, turns ...Turn) error
	Recent(ctx context.Context, key string, n int) ([]Turn, error)
	Clear(ctx context.Context, key string) error
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
