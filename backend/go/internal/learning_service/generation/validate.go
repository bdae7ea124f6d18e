package generation

import (
	"regexp"
	"strings"
)

var (
	letterAnswer  = regexp.MustCompile(`^\(?([A-Za-z])(?:[).:]?$|[).:]\s)`)
	letterPrefix  = regexp.MustCompile(`^\(?[A-Da-d][).]\s+`)
	trueFalseOpts = []string{"true", "false"}
)

// ValidateQuestions 规范化题目并丢弃不合格的题目：
// 单选题恰好 4 个不同选项，判断题选项固定为 ["true","false"]，其余题型至少 2 个选项，
// 且答案总是其中一个选项。
func ValidateQuestions(quizType QuizType, items []QuizItem) []QuizItem {
	out := make([]QuizItem, 0, len(items))
	for _, item := range items {
		if q, ok := normalizeQuestion(quizType, item); ok {
			out = append(out, q)
		}
	}
	return out
}

func normalizeQuestion(quizType QuizType, q QuizItem) (QuizItem, bool) {
	q.Question = strings.TrimSpace(q.Question)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	if q.Question == "" || q.CorrectAnswer == "" {
		return q, false
	}
	q.Type = effectiveType(quizType, q)

	switch q.Type {
	case TrueFalse:
		return normalizeTrueFalse(q)
	case MultipleChoice:
		q.Options = cleanOptions(q.Options)
		if len(q.Options) > 4 {
			q.Options = q.Options[:4]
		}
		if len(q.Options) != 4 {
			return q, false
		}
	default:
		q.Options = cleanOptions(q.Options)
		if len(q.Options) < 2 {
			return q, false
		}
	}

	answer, ok := matchAnswer(q.Options, q.CorrectAnswer)
	if !ok {
		return q, false
	}
	q.CorrectAnswer = answer
	return q, true
}

// effectiveType 决定单道题的题型。混合测验中以题目自带的 type 为准，缺失时根据选项推断。
func effectiveType(quizType QuizType, q QuizItem) QuizType {
	if quizType != Mixed {
		return quizType
	}
	if quizTypes[q.Type] && q.Type != Mixed {
		return q.Type
	}
	opts := cleanOptions(q.Options)
	switch {
	case isTrueFalseSet(opts) || (len(opts) == 0 && isTrueFalseAnswer(q.CorrectAnswer)):
		return TrueFalse
	case strings.Contains(q.Question, "___"):
		return FillInBlank
	case len(opts) == 4:
		return MultipleChoice
	default:
		return Matching
	}
}

func normalizeTrueFalse(q QuizItem) (QuizItem, bool) {
	lower := strings.ToLower(q.Question)
	for _, phrase := range forbiddenTrueFalsePhrases {
		if strings.Contains(lower, phrase) {
			return q, false
		}
	}
	answer := strings.ToLower(strings.Trim(q.CorrectAnswer, " .\"'"))
	if !isTrueFalseAnswer(answer) {
		return q, false
	}
	if !strings.HasSuffix(q.Question, "?") {
		q.Question = strings.TrimRight(q.Question, ".!") + "?"
	}
	q.Options = append([]string(nil), trueFalseOpts...)
	q.CorrectAnswer = answer
	return q, true
}

func isTrueFalseAnswer(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false"
}

func isTrueFalseSet(opts []string) bool {
	if len(opts) != 2 {
		return false
	}
	a, b := strings.ToLower(opts[0]), strings.ToLower(opts[1])
	return (a == "true" && b == "false") || (a == "false" && b == "true")
}

// cleanOptions 去掉空白、"A) " 之类的前缀以及重复项，保持原有顺序。
func cleanOptions(opts []string) []string {
	seen := make(map[string]bool, len(opts))
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		o = strings.TrimSpace(letterPrefix.ReplaceAllString(strings.TrimSpace(o), ""))
		key := strings.ToLower(o)
		if o == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}

// matchAnswer 把答案对应到选项：先按文本（忽略大小写）匹配，再按字母序号匹配。
func matchAnswer(opts []string, answer string) (string, bool) {
	candidates := []string{answer, strings.TrimSpace(letterPrefix.ReplaceAllString(answer, ""))}
	for _, c := range candidates {
		for _, o := range opts {
			if strings.EqualFold(o, c) {
				return o, true
			}
		}
	}
	if m := letterAnswer.FindStringSubmatch(answer); m != nil {
		idx := int(strings.ToUpper(m[1])[0] - 'A')
		if idx >= 0 && idx < len(opts) {
			return opts[idx], true
		}
	}
	return "", false
}
