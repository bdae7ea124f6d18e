// Package generation 负责内容生成流水线中与模型打交道的部分：
// 选择并填充提示词模板、调用 LLM，以及把模型的原始输出解析、修复为结构化的题目、卡片或笔记。
package generation

import (
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
)

// ArtifactType 是生成产物的类别。
type ArtifactType int

const (
	Quiz ArtifactType = iota + 1
	Flashcards
	Notes
	Chat
)

var artifactNames = map[ArtifactType]string{
	Quiz:       "quiz",
	Flashcards: "flashcards",
	Notes:      "notes",
	Chat:       "chat",
}

func (a ArtifactType) String() string {
	if name, ok := artifactNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseArtifactType 把名称转换为 ArtifactType。
func ParseArtifactType(s string) (ArtifactType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a, n := range artifactNames {
		if n == name {
			return a, nil
		}
	}
	return 0, apperr.Newf(apperr.BadInput, "unsupported content type: %s", s)
}

// QuizType 是测验题型。
type QuizType string

const (
	MultipleChoice QuizType = "multiple_choice"
	TrueFalse      QuizType = "true_false"
	FillInBlank    QuizType = "fill_in_blank"
	Matching       QuizType = "matching"
	Mixed          QuizType = "mixed"
)

var quizTypes = map[QuizType]bool{
	MultipleChoice: true,
	TrueFalse:      true,
	FillInBlank:    true,
	Matching:       true,
	Mixed:          true,
}

// ParseQuizType 校验题型，空字符串表示单选题。
func ParseQuizType(s string) (QuizType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MultipleChoice, nil
	}
	qt := QuizType(s)
	if !quizTypes[qt] {
		return "", apperr.Newf(apperr.BadInput, "invalid quiz_type: %s", s)
	}
	return qt, nil
}

// Difficulty 是题目难度。
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty 校验难度，空字符串使用 fallback。
func ParseDifficulty(s string, fallback Difficulty) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Difficulty(s) {
	case "":
		return fallback, nil
	case Easy, Medium, Hard:
		return Difficulty(s), nil
	default:
		return "", apperr.Newf(apperr.BadInput, "invalid difficulty: %s", s)
	}
}
