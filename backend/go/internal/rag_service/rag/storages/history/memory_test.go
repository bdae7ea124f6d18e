package history

import (
	"context"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(3)

	require.NoError(t, s.Append(ctx, "k", interfaces.Turn{Role: "user", Content: "1"}, interfaces.Turn{Role: "assistant", Content: "2"}))
	require.NoError(t, s.Append(ctx, "k", interfaces.Turn{Role: "user", Content: "3"}, interfaces.Turn{Role: "assistant", Content: "4"}))

	all, err := s.Recent(ctx, "k", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2", all[0].Content)
	assert.Equal(t, "4", all[2].Content)

	last, err := s.Recent(ctx, "k", 1)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Turn{{Role: "assistant", Content: "4"}}, last)

	other, err := s.Recent(ctx, "other", 5)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.Clear(ctx, "k"))
	all, err = s.Recent(ctx, "k", 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
