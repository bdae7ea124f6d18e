package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
)

// QAPipeline is responsible for generating an answer based on a query and retrieved chunks.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run builds the grounded prompt and calls the LLM to generate an answer.
// sourceLabel names the material in the prompt, e.g. "document" or "video".
func (p *QAPipeline) Run(ctx context.Context, query string, chunks []*schema.Chunk, history []interfaces.Turn, sourceLabel string) (string, error) {
	p.log.Debug(fmt.Sprintf("Building prompt with %d chunks and %d history turns", len(chunks), len(history)))

	// 1. Build the prompt
	prompt, err := generation.Build(generation.Request{
		Artifact:    generation.Chat,
		Text:        strings.Join(schema.Texts(chunks), "\n\n"),
		Question:    query,
		History:     FormatHistory(history),
		SourceLabel: sourceLabel,
	})
	if err != nil {
		return "", err
	}

	// 2. Call the LLM to generate the answer
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		p.log.Error(fmt.Sprintf("LLM failed to generate answer: %v", err))
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// FormatHistory renders turns as "User: ..." / "Assistant: ..." lines.
func FormatHistory(turns []interfaces.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		role := "User"
		if t.Role == "assistant" {
			role = "Assistant"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
