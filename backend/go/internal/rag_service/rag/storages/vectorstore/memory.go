package vectorstore

import (
	"math"
	"sort"

	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
)

// MemoryIndex is an immutable in-memory cosine similarity index over the chunks
// of one source. It is safe for concurrent searches.
type MemoryIndex struct {
	chunks []*schema.Chunk
	norms  []float64
}

// NewMemoryIndex builds an index. Chunks without an embedding are skipped.
func NewMemoryIndex(chunks []*schema.Chunk) *MemoryIndex {
	idx := &MemoryIndex{}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		idx.chunks = append(idx.chunks, c)
		idx.norms = append(idx.norms, norm(c.Embedding))
	}
	return idx
}

// Len returns the number of indexed chunks.
func (m *MemoryIndex) Len() int {
	return len(m.chunks)
}

// Chunks returns the indexed chunks in source order.
func (m *MemoryIndex) Chunks() []*schema.Chunk {
	return m.chunks
}

// Search returns up to topK chunks ordered by descending cosine similarity.
// The returned chunks are copies carrying the score.
func (m *MemoryIndex) Search(query []float32, topK int) []*schema.Chunk {
	if topK <= 0 || len(m.chunks) == 0 {
		return nil
	}
	qn := norm(query)
	type scored struct {
		i     int
		score float64
	}
	results := make([]scored, 0, len(m.chunks))
	for i, c := range m.chunks {
		if len(c.Embedding) != len(query) {
			continue
		}
		results = append(results, scored{i: i, score: cosine(query, c.Embedding, qn, m.norms[i])})
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].score > results[b].score })
	if len(results) > topK {
		results = results[:topK]
	}

	out := make([]*schema.Chunk, len(results))
	for j, r := range results {
		c := *m.chunks[r.i]
		c.Score = float32(r.score)
		out[j] = &c
	}
	return out
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
