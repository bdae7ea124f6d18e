package generation

import (
	"context"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/llm"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
)

// Invoker 把提示词发送给 LLM 并返回原始文本。每次调用只尝试一次，不做重试。
type Invoker struct {
	model llm.LLM
	log   *logger.Logger
}

// Output 是一次完整生成的结果：解析结果加上原始输出，供审计记录使用。
type Output struct {
	Result
	Raw string
}

// NewInvoker 创建 Invoker。model 为 nil 表示没有配置凭证，所有调用都返回 ServiceUnavailable。
func NewInvoker(model llm.LLM, log *logger.Logger) *Invoker {
	if log == nil {
		log = logger.Discard()
	}
	return &Invoker{model: model, log: log}
}

// Invoke 发送提示词并返回模型的原始输出。
func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if i.model == nil {
		return "", apperr.New(apperr.ServiceUnavailable, "LLM provider is not configured")
	}
	start := time.Now()
	out, err := i.model.Generate(ctx, prompt)
	if err != nil {
		i.log.WithField("prompt_chars", len(prompt)).Error("LLM 调用失败: " + err.Error())
		return "", err
	}
	i.log.WithPayload(map[string]interface{}{
		"prompt_chars": len(prompt),
		"output_chars": len(out),
		"latency_ms":   time.Since(start).Milliseconds(),
	}).Debug("LLM 调用完成")
	return out, nil
}

// Generate 依次执行构建提示词、调用模型与解析。
// 解析阶段永远不会失败，模型输出无法解析时返回占位内容。
func (i *Invoker) Generate(ctx context.Context, req Request) (Output, error) {
	prompt, err := Build(req)
	if err != nil {
		return Output{}, err
	}
	raw, err := i.Invoke(ctx, prompt)
	if err != nil {
		return Output{}, err
	}
	res := Parse(req.Artifact, req.QuizType, raw)
	if res.Placeholder {
		i.log.WithField("artifact", req.Artifact.String()).Warn("模型输出无法解析，使用占位内容")
	}
	return Output{Result: res, Raw: raw}, nil
}

// GenerateFromVideo 让视频模型直接基于视频生成内容，Chat 返回的 Raw 为视频摘要。
func (i *Invoker) GenerateFromVideo(ctx context.Context, videoURL string, artifact ArtifactType, count int) (Output, error) {
	if i.model == nil {
		return Output{}, apperr.New(apperr.ServiceUnavailable, "LLM provider is not configured")
	}
	video, ok := i.model.(llm.VideoLLM)
	if !ok {
		return Output{}, apperr.New(apperr.ServiceUnavailable, "configured LLM provider cannot process videos")
	}
	prompt, err := BuildVideo(artifact, count)
	if err != nil {
		return Output{}, err
	}
	raw, err := video.GenerateFromVideo(ctx, videoURL, prompt)
	if err != nil {
		i.log.WithField("video_url", videoURL).Error("视频理解调用失败: " + err.Error())
		return Output{}, err
	}
	if artifact == Chat {
		return Output{Result: Result{Artifact: Chat}, Raw: raw}, nil
	}
	return Output{Result: Parse(artifact, MultipleChoice, raw), Raw: raw}, nil
}
