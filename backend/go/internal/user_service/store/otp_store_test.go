package store

import (
	"context"
	"testing"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOTPStore_Expiry(t *testing.T) {
	s, err := NewMemoryOTPStore(8)
	require.NoError(t, err)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "otp:a@b.c", "123456", time.Minute))
	v, err := s.Get(ctx, "otp:a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "123456", v)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "otp:a@b.c")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestMemoryOTPStore_Delete(t *testing.T) {
	s, err := NewMemoryOTPStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1", time.Hour))
	require.NoError(t, s.Set(ctx, "b", "2", time.Hour))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

	_, err = s.Get(ctx, "a")
	assert.Error(t, err)
	_, err = s.Get(ctx, "b")
	assert.Error(t, err)
}

func TestMemoryOTPStore_Incr(t *testing.T) {
	s, err := NewMemoryOTPStore(8)
	require.NoError(t, err)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "otp_attempts:a@b.c", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// 过期后从头计数
	now = now.Add(time.Minute)
	n, err := s.Incr(ctx, "otp_attempts:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Set(ctx, "reset:a@b.c", "token", time.Minute))
	_, err = s.Incr(ctx, "reset:a@b.c", time.Minute)
	assert.Error(t, err)
}
