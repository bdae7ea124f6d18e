package splitters

import (
	"context"
	"fmt"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken is the rough ratio used when the tokenizer is unavailable.
const charsPerToken = 4

// TokenSplitter implements the Splitter interface to split text based on token count.
type TokenSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    *tiktoken.Tiktoken
}

// NewTokenSplitter creates a new TokenSplitter.
// It initializes a tokenizer for the specified model.
func NewTokenSplitter(chunkSize, chunkOverlap int) (*TokenSplitter, error) {
	if err := validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	// Using "cl100k_base" which is the tokenizer for gpt-4, gpt-3.5-turbo, and text-embedding-ada-002
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tke,
	}, nil
}

// Split splits the text into chunks of at most ChunkSize tokens, each sharing
// ChunkOverlap tokens with the previous one.
func (s *TokenSplitter) Split(ctx context.Context, text string) ([]*schema.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tokens := s.tokenizer.Encode(text, nil, nil)
	step := s.ChunkSize - s.ChunkOverlap

	var chunks []*schema.Chunk
	for start := 0; start < len(tokens); start += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + s.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		// Decode the chunk of tokens back to text
		chunkText := s.tokenizer.Decode(tokens[start:end])
		chunks = appendChunk(chunks, chunkText)

		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}

// CharSplitter splits on characters instead of tokens. It is used when the
// tokenizer encoding cannot be loaded.
type CharSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharSplitter creates a CharSplitter; sizes are in characters.
func NewCharSplitter(chunkSize, chunkOverlap int) (*CharSplitter, error) {
	if err := validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &CharSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split splits the text into rune windows of ChunkSize with ChunkOverlap overlap.
func (s *CharSplitter) Split(ctx context.Context, text string) ([]*schema.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	runes := []rune(text)
	step := s.ChunkSize - s.ChunkOverlap

	var chunks []*schema.Chunk
	for start := 0; start < len(runes); start += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = appendChunk(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// New returns a TokenSplitter, or a CharSplitter of the same approximate size
// when the tokenizer is unavailable (for example without network access).
func New(chunkSize, chunkOverlap int) (interfaces.Splitter, error) {
	ts, err := NewTokenSplitter(chunkSize, chunkOverlap)
	if err == nil {
		return ts, nil
	}
	if verr := validate(chunkSize, chunkOverlap); verr != nil {
		return nil, verr
	}
	return NewCharSplitter(chunkSize*charsPerToken, chunkOverlap*charsPerToken)
}

func validate(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return nil
}

func appendChunk(chunks []*schema.Chunk, text string) []*schema.Chunk {
	if strings.TrimSpace(text) == "" {
		return chunks
	}
	return append(chunks, &schema.Chunk{
		ID:    uuid.New().String(),
		Index: len(chunks),
		Text:  text,
	})
}

// compile-time check to ensure both splitters implement the Splitter interface
var (
	_ interfaces.Splitter = (*TokenSplitter)(nil)
	_ interfaces.Splitter = (*CharSplitter)(nil)
)
