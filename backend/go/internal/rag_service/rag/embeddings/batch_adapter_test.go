package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lenModel struct {
	calls atomic.Int32
	fail  bool
}

func (m *lenModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (m *lenModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.fail {
		return nil, errors.New("quota exceeded")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestBatchAdapter_KeepsOrderAcrossBatches(t *testing.T) {
	m := &lenModel{}
	a := NewBatchAdapter(m, 3, 2)

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}
	vecs, err := a.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 10)
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0])
	}
	assert.Equal(t, int32(4), m.calls.Load())
}

func TestBatchAdapter_Errors(t *testing.T) {
	a := NewBatchAdapter(&lenModel{fail: true}, 2, 0)
	_, err := a.Embed(context.Background(), []string{"a", "b", "c"})
	assert.ErrorContains(t, err, "quota exceeded")

	vecs, err := NewBatchAdapter(&lenModel{}, 0, 0).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
