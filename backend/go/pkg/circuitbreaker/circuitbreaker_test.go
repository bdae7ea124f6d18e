package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New(2, 1, time.Minute)

	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Closed, b.State())
	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(2, 1, time.Minute)
	_ = b.Execute(fail)
	_ = b.Execute(succeed)
	_ = b.Execute(fail)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []string
	b := NewWithSettings(Settings{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Second,
		Now:              func() time.Time { return now },
		OnStateChange:    func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) },
	})

	_ = b.Execute(fail)
	assert.Equal(t, Open, b.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	assert.NoError(t, b.Execute(succeed))
	assert.Equal(t, HalfOpen, b.State())
	assert.NoError(t, b.Execute(succeed))
	assert.Equal(t, Closed, b.State())

	assert.Equal(t, []string{"Closed->Open", "Open->Half-Open", "Half-Open->Closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewWithSettings(Settings{FailureThreshold: 1, Timeout: time.Second, Now: func() time.Time { return now }})

	_ = b.Execute(fail)
	now = now.Add(2 * time.Second)
	_ = b.Execute(fail)
	assert.Equal(t, Open, b.State())
}

func TestBreaker_IgnoredErrors(t *testing.T) {
	b := NewWithSettings(Settings{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		IsFailure:        func(err error) bool { return !errors.Is(err, context.Canceled) },
	})

	err := b.Execute(func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, b.State())
}
