package schema

// Chunk is the central data structure of the chat index: one piece of a source text
// and its vector. It is the primary data carrier throughout the pipelines.
type Chunk struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Index is the position of the chunk within its source, starting at 0.
	Index int

	// Text is the string content of the chunk.
	Text string

	// Embedding is the vector representation of the text.
	Embedding []float32

	// Score is the similarity to the query; only set on retrieval results.
	Score float32
}

// Texts returns the text of every chunk in order.
func Texts(chunks []*Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
