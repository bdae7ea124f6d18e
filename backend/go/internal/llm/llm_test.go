package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	out   string
	err   error
	calls int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "gemini"})
	require.Error(t, err)
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "openai"})
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "mystery"})
	assert.Error(t, err)
}

func TestGuarded_ClassifiesErrors(t *testing.T) {
	stub := &stubLLM{err: errors.New("upstream 500")}
	g := NewGuarded(stub, circuitbreaker.New(2, 1, time.Minute))

	_, err := g.Generate(context.Background(), "p")
	assert.Equal(t, apperr.GenerationFailure, apperr.KindOf(err))
	_, err = g.Generate(context.Background(), "p")
	assert.Equal(t, apperr.GenerationFailure, apperr.KindOf(err))

	// 熔断打开后不再调用底层模型
	_, err = g.Generate(context.Background(), "p")
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))
	assert.Equal(t, 2, stub.calls)
}

func TestGuarded_Success(t *testing.T) {
	g := NewGuarded(&stubLLM{out: `{"questions":[]}`}, nil)
	out, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, out)
}

func TestGuarded_VideoUnsupported(t *testing.T) {
	g := NewGuarded(&stubLLM{}, nil)
	_, err := g.GenerateFromVideo(context.Background(), "https://youtu.be/x", "p")
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))
}
