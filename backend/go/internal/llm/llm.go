package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 一次调用只发送一个提示词并返回模型的原始文本输出。
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VideoLLM 是能直接理解视频链接的模型。
type VideoLLM interface {
	GenerateFromVideo(ctx context.Context, videoURL, prompt string) (string, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// 缺少凭证时返回 ServiceUnavailable，便于上层直接映射为 503。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, apperr.New(apperr.ServiceUnavailable, "Google API key is not configured")
		}
		return NewGemini(ctx, cfg.Gemini)
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, apperr.New(apperr.ServiceUnavailable, "OpenAI API key is not configured")
		}
		return NewOpenAI(cfg.OpenAI)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.URL, cfg.Gemini.Temperature)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Guarded 用熔断器包装一个 LLM。熔断打开期间的调用直接返回 ServiceUnavailable，
// 其余错误归类为 GenerationFailure。
type Guarded struct {
	inner   LLM
	breaker *circuitbreaker.Breaker
}

// NewGuarded 创建一个带熔断保护的 LLM。breaker 为 nil 时不做熔断。
func NewGuarded(inner LLM, breaker *circuitbreaker.Breaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

// Generate 实现 LLM 接口。
func (g *Guarded) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	call := func() error {
		var err error
		out, err = g.inner.Generate(ctx, prompt)
		return err
	}
	var err error
	if g.breaker == nil {
		err = call()
	} else {
		err = g.breaker.Execute(call)
	}
	return out, classify(err)
}

// GenerateFromVideo 在底层模型支持视频时转发调用。
func (g *Guarded) GenerateFromVideo(ctx context.Context, videoURL, prompt string) (string, error) {
	video, ok := g.inner.(VideoLLM)
	if !ok {
		return "", apperr.New(apperr.ServiceUnavailable, "configured LLM provider cannot process videos")
	}
	var out string
	call := func() error {
		var err error
		out, err = video.GenerateFromVideo(ctx, videoURL, prompt)
		return err
	}
	var err error
	if g.breaker == nil {
		err = call()
	} else {
		err = g.breaker.Execute(call)
	}
	return out, classify(err)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return apperr.Wrap(apperr.ServiceUnavailable, "LLM provider is temporarily unavailable", err)
	case apperr.KindOf(err) != apperr.Internal:
		return err
	default:
		return apperr.Wrap(apperr.GenerationFailure, "LLM call failed", err)
	}
}
