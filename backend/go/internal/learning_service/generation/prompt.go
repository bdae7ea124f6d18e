package generation

import (
	"strings"
	"text/template"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
)

const (
	// DefaultCount 是未指定数量时生成的条目数。
	DefaultCount = 5
	// MaxCount 是单次生成允许的最大条目数。
	MaxCount = 50
	// DefaultLanguage 是未指定语言时使用的语言。
	DefaultLanguage = "English"
)

// Request 描述一次提示词构建所需的全部输入。
type Request struct {
	Artifact   ArtifactType
	QuizType   QuizType
	Difficulty Difficulty
	Language   string
	Count      int
	Text       string

	// 以下字段只用于 Chat。
	Question    string
	History     string
	SourceLabel string
}

type templateData struct {
	Request
	Schema    string
	Forbidden string
}

// Build 选择模板并填充占位符。它是纯函数，不访问任何外部服务。
func Build(req Request) (string, error) {
	req, err := normalize(req)
	if err != nil {
		return "", err
	}

	var tmpl *template.Template
	switch req.Artifact {
	case Quiz:
		tmpl = quizTemplates[req.QuizType]
	default:
		tmpl = textTemplates[req.Artifact]
	}
	if tmpl == nil {
		return "", apperr.Newf(apperr.BadInput, "no prompt template for %s", req.Artifact)
	}
	return render(tmpl, templateData{
		Request:   req,
		Schema:    schemas[req.Artifact],
		Forbidden: quoteList(forbiddenTrueFalsePhrases),
	})
}

// BuildVideo 构建直接基于视频生成内容的提示词，Chat 对应视频摘要。
func BuildVideo(artifact ArtifactType, count int) (string, error) {
	tmpl, ok := videoTemplates[artifact]
	if !ok {
		return "", apperr.Newf(apperr.BadInput, "no video prompt for %s", artifact)
	}
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		return "", apperr.Newf(apperr.BadInput, "num_questions must be between 1 and %d", MaxCount)
	}
	return render(tmpl, templateData{
		Request: Request{Artifact: artifact, Count: count},
		Schema:  schemas[artifact],
	})
}

func normalize(req Request) (Request, error) {
	if _, ok := artifactNames[req.Artifact]; !ok {
		return req, apperr.New(apperr.BadInput, "unknown artifact type")
	}
	if strings.TrimSpace(req.Text) == "" {
		return req, apperr.New(apperr.BadInput, "source text is empty")
	}
	if req.Count == 0 {
		req.Count = DefaultCount
	}
	if req.Count < 1 || req.Count > MaxCount {
		return req, apperr.Newf(apperr.BadInput, "num_items must be between 1 and %d", MaxCount)
	}
	if req.QuizType == "" {
		req.QuizType = MultipleChoice
	}
	if req.Artifact == Quiz && !quizTypes[req.QuizType] {
		return req, apperr.Newf(apperr.BadInput, "invalid quiz_type: %s", req.QuizType)
	}
	if req.Difficulty == "" {
		req.Difficulty = Medium
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = DefaultLanguage
	}
	if req.Artifact == Chat {
		if strings.TrimSpace(req.Question) == "" {
			return req, apperr.New(apperr.BadInput, "question is empty")
		}
		if req.SourceLabel == "" {
			req.SourceLabel = "document"
		}
	}
	return req, nil
}

func render(tmpl *template.Template, data templateData) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to render prompt", err)
	}
	return sb.String(), nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = `"` + it + `"`
	}
	return strings.Join(quoted, ", ")
}
