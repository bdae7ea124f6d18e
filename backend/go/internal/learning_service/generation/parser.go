package generation

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
)

// QuizItem 是解析出的一道题。
type QuizItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Type          QuizType `json:"type"`
}

// Card 是解析出的一张卡片。
type Card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Section 是解析出的一个笔记章节。
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Result 是解析的结果。根据 Artifact 只有一个切片有内容，且永远不为空。
type Result struct {
	Artifact    ArtifactType
	Questions   []QuizItem
	Cards       []Card
	Sections    []Section
	Strategy    models.ParseStrategy
	Placeholder bool
}

// Len 返回解析出的条目数。
func (r Result) Len() int {
	switch r.Artifact {
	case Quiz:
		return len(r.Questions)
	case Flashcards:
		return len(r.Cards)
	case Notes:
		return len(r.Sections)
	}
	return 0
}

// Parse 把模型的原始输出转换为结构化结果，依次尝试 JSON、正则，最后退回占位内容。
// Parse 从不返回错误。
func Parse(artifact ArtifactType, quizType QuizType, raw string) Result {
	if quizType == "" {
		quizType = MultipleChoice
	}
	if res, ok := parseJSON(artifact, quizType, raw); ok {
		res.Strategy = models.StrategyJSON
		return res
	}
	if res, ok := parseText(artifact, quizType, raw); ok {
		res.Strategy = models.StrategyRegex
		return res
	}
	return Placeholder(artifact, quizType)
}

// Placeholder 返回表示生成失败的单条占位内容。
func Placeholder(artifact ArtifactType, quizType QuizType) Result {
	res := Result{Artifact: artifact, Strategy: models.StrategyPlaceholder, Placeholder: true}
	switch artifact {
	case Quiz:
		item := QuizItem{
			Question:      "Failed to generate quiz",
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
			Type:          MultipleChoice,
		}
		if quizType == TrueFalse {
			item.Options = []string{"true", "false"}
			item.CorrectAnswer = "true"
			item.Type = TrueFalse
		}
		res.Questions = []QuizItem{item}
	case Flashcards:
		res.Cards = []Card{{Front: "Failed to generate flashcards", Back: "The model response could not be parsed. Please try again."}}
	default:
		res.Artifact = Notes
		res.Sections = []Section{{Title: "Failed to generate notes", Content: "The model response could not be parsed. Please try again."}}
	}
	return res
}

// trimToObject 截取第一个 '{' 与最后一个 '}' 之间的内容。
func trimToObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// flexString 接受 JSON 字符串、数字或布尔值。
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

type jsonQuestion struct {
	Question      flexString   `json:"question"`
	Options       []flexString `json:"options"`
	CorrectAnswer flexString   `json:"correct_answer"`
	Answer        flexString   `json:"answer"`
	Type          flexString   `json:"type"`
}

type jsonCard struct {
	Front    flexString `json:"front"`
	Back     flexString `json:"back"`
	Question flexString `json:"question"`
	Answer   flexString `json:"answer"`
}

type jsonDocument struct {
	Questions  []jsonQuestion   `json:"questions"`
	Cards      []jsonCard       `json:"cards"`
	Flashcards []jsonCard       `json:"flashcards"`
	Sections   []Section        `json:"sections"`
	Notes      *json.RawMessage `json:"notes"`
}

func parseJSON(artifact ArtifactType, quizType QuizType, raw string) (Result, bool) {
	obj, ok := trimToObject(raw)
	if !ok {
		return Result{}, false
	}
	var doc jsonDocument
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return Result{}, false
	}

	res := Result{Artifact: artifact}
	switch artifact {
	case Quiz:
		items := make([]QuizItem, 0, len(doc.Questions))
		for _, q := range doc.Questions {
			item := QuizItem{
				Question:      string(q.Question),
				CorrectAnswer: string(q.CorrectAnswer),
				Type:          QuizType(strings.ToLower(strings.TrimSpace(string(q.Type)))),
			}
			if item.CorrectAnswer == "" {
				item.CorrectAnswer = string(q.Answer)
			}
			for _, o := range q.Options {
				item.Options = append(item.Options, string(o))
			}
			items = append(items, item)
		}
		res.Questions = ValidateQuestions(quizType, items)
	case Flashcards:
		res.Cards = cleanCards(append(cardsFromJSON(doc.Cards), cardsFromJSON(doc.Flashcards)...))
	case Notes:
		sections := doc.Sections
		if doc.Notes != nil {
			sections = append(sections, sectionsFromNotes(*doc.Notes)...)
		}
		res.Sections = cleanSections(sections)
	default:
		return Result{}, false
	}
	return res, res.Len() > 0
}

func cardsFromJSON(in []jsonCard) []Card {
	out := make([]Card, 0, len(in))
	for _, c := range in {
		card := Card{Front: string(c.Front), Back: string(c.Back)}
		if card.Front == "" {
			card.Front = string(c.Question)
		}
		if card.Back == "" {
			card.Back = string(c.Answer)
		}
		out = append(out, card)
	}
	return out
}

// sectionsFromNotes 处理 {"notes": "..."} 或 {"notes": [...]} 两种写法。
func sectionsFromNotes(raw json.RawMessage) []Section {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []Section{{Title: "Notes", Content: text}}
	}
	var sections []Section
	if err := json.Unmarshal(raw, &sections); err == nil {
		return sections
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return []Section{{Title: "Notes", Content: strings.Join(lines, "\n")}}
	}
	return nil
}

func cleanCards(in []Card) []Card {
	out := make([]Card, 0, len(in))
	for _, c := range in {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front == "" || c.Back == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func cleanSections(in []Section) []Section {
	out := make([]Section, 0, len(in))
	for i, s := range in {
		s.Title = strings.TrimSpace(s.Title)
		s.Content = strings.TrimSpace(s.Content)
		if s.Content == "" {
			continue
		}
		if s.Title == "" {
			s.Title = "Section " + strconv.Itoa(i+1)
		}
		out = append(out, s)
	}
	return out
}

var (
	questionLine = regexp.MustCompile(`(?i)^\s*(?:\*\*)?(?:question\s*\d*\s*[:.)\-]?|q\d+\s*[:.)\-]|\d+\s*[.)])\s*(?:\*\*)?\s*(.+)$`)
	optionLine   = regexp.MustCompile(`^\s*\(?([A-Da-d])[).:]\s+(.+)$`)
	answerLine   = regexp.MustCompile(`(?i)^\s*(?:\*\*)?(?:correct\s+)?answer\s*(?:\*\*)?\s*[:\-]\s*(?:\*\*)?\s*(.+)$`)
	frontLine    = regexp.MustCompile(`(?i)^\s*(?:\*\*)?front\s*(?:\*\*)?\s*:\s*(.*)$`)
	backLine     = regexp.MustCompile(`(?i)^\s*(?:\*\*)?back\s*(?:\*\*)?\s*:\s*(.*)$`)
	sectionLine  = regexp.MustCompile(`(?i)^\s*(?:section\s*\d*\s*:|#{1,6}\s)\s*(.*)$`)
)

func parseText(artifact ArtifactType, quizType QuizType, raw string) (Result, bool) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	res := Result{Artifact: artifact}
	switch artifact {
	case Quiz:
		res.Questions = ValidateQuestions(quizType, questionsFromText(lines))
	case Flashcards:
		res.Cards = cleanCards(cardsFromText(lines))
	case Notes:
		res.Sections = cleanSections(sectionsFromText(lines))
	default:
		return Result{}, false
	}
	return res, res.Len() > 0
}

func questionsFromText(lines []string) []QuizItem {
	var (
		items   []QuizItem
		current *QuizItem
	)
	flush := func() {
		if current != nil {
			items = append(items, *current)
		}
		current = nil
	}
	for _, line := range lines {
		if m := answerLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.CorrectAnswer = strings.TrimSpace(strings.Trim(m[1], "* "))
			}
			continue
		}
		if m := optionLine.FindStringSubmatch(line); m != nil && current != nil {
			current.Options = append(current.Options, strings.TrimSpace(m[2]))
			continue
		}
		if m := questionLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &QuizItem{Question: strings.TrimSpace(m[1])}
		}
	}
	flush()
	return items
}

func cardsFromText(lines []string) []Card {
	var (
		cards   []Card
		current *Card
		inBack  bool
	)
	for _, line := range lines {
		if m := frontLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				cards = append(cards, *current)
			}
			current = &Card{Front: m[1]}
			inBack = false
			continue
		}
		if current == nil {
			continue
		}
		if m := backLine.FindStringSubmatch(line); m != nil {
			current.Back = m[1]
			inBack = true
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if inBack {
			current.Back += "\n" + strings.TrimSpace(line)
		} else {
			current.Front += " " + strings.TrimSpace(line)
		}
	}
	if current != nil {
		cards = append(cards, *current)
	}
	return cards
}

func sectionsFromText(lines []string) []Section {
	var (
		sections []Section
		current  *Section
		content  []string
	)
	flush := func() {
		if current != nil {
			current.Content = strings.Join(content, "\n")
			sections = append(sections, *current)
		}
		current, content = nil, nil
	}
	for _, line := range lines {
		if m := sectionLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &Section{Title: strings.Trim(strings.TrimSpace(m[1]), "*")}
			continue
		}
		if current == nil {
			continue
		}
		if current.Title == "" && strings.TrimSpace(line) != "" {
			current.Title = strings.TrimSpace(line)
			continue
		}
		content = append(content, strings.TrimRight(line, " \t"))
	}
	flush()
	return sections
}
