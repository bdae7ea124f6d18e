package generation

import (
	"text/template"
)

// forbiddenTrueFalsePhrases 出现在判断题题干中时该题会被丢弃，同时写入提示词。
var forbiddenTrueFalsePhrases = []string{
	"which of the following",
	"best describes",
	"focusing on",
	"primarily",
	"specializing in",
	"area of expertise",
	"what is",
	"how does",
	"what are",
	"what do",
}

const (
	quizSchema = `Respond with a single JSON object and nothing else:
{
  "questions": [
    {"question": "string", "options": ["string"], "correct_answer": "string", "type": "string"}
  ]
}
"correct_answer" must be copied exactly from "options".`

	flashcardSchema = `Respond with a single JSON object and nothing else:
{
  "cards": [
    {"front": "question or term", "back": "answer or definition"}
  ]
}`

	notesSchema = `Respond with a single JSON object and nothing else:
{
  "sections": [
    {"title": "section title", "content": "section content"}
  ]
}`
)

const quizHeader = `You are writing a {{.Difficulty}} quiz in {{.Language}} with exactly {{.Count}} questions, based only on the source text below.
`

const quizFooter = `
Source text:
"""
{{.Text}}
"""

{{.Schema}}`

var quizBodies = map[QuizType]string{
	MultipleChoice: `Every question is multiple choice:
- "options" holds exactly 4 distinct answers
- exactly one option is correct and "correct_answer" repeats it word for word
- the three wrong options are plausible but clearly wrong
- "type" is "multiple_choice"
`,
	TrueFalse: `Every question is a true/false statement:
- the question is one short factual claim about the text, starting with its subject and ending with "?" (for example "The sky is blue?")
- "options" is exactly ["true", "false"] in lowercase
- "correct_answer" is "true" or "false" in lowercase
- "type" is "true_false"
- never offer more than two options and never write a multiple choice question
- never use any of these phrasings: {{.Forbidden}}
`,
	FillInBlank: `Every question is a fill-in-the-blank sentence:
- the missing word or phrase is written as _____
- "options" holds the candidate answers, including the correct one
- "correct_answer" repeats the correct option word for word
- "type" is "fill_in_blank"
`,
	Matching: `Every question is a matching item:
- "question" is the term to match
- "options" holds the possible matches
- "correct_answer" repeats the correct match word for word
- "type" is "matching"
`,
	Mixed: `Mix the question types evenly between multiple_choice, true_false, fill_in_blank and matching:
- set "type" on every question
- multiple_choice questions have exactly 4 options
- true_false questions have options ["true", "false"] and a lowercase answer
- fill_in_blank questions mark the blank with _____
- "correct_answer" always repeats one of the options word for word
`,
}

const flashcardTemplate = `Create exactly {{.Count}} flashcards in {{.Language}} from the source text below.
- "front" is a short question or key term
- "back" is a clear, self-contained answer or definition
- cover the most important concepts first

Source text:
"""
{{.Text}}
"""

{{.Schema}}`

const notesTemplate = `Write concise study notes in {{.Language}} from the source text below.
- organise the notes into about {{.Count}} sections with short titles
- keep key definitions, facts and relationships; drop filler
- each section's content is plain text, bullet lines allowed

Source text:
"""
{{.Text}}
"""

{{.Schema}}`

const chatTemplate = `Based on the following context from the {{.SourceLabel}}:

{{.Text}}
{{if .History}}
Conversation so far:
{{.History}}
{{end}}
Please answer this question: {{.Question}}

If the question cannot be answered using the provided context, please say so.`

// videoPrompts 是直接把视频交给模型时使用的提示词。
var videoPrompts = map[ArtifactType]string{
	Quiz: `Based on this video, generate a quiz with exactly {{.Count}} multiple choice questions.
Each question tests understanding of a key concept from the video, has exactly 4 options,
one correct answer and plausible but clearly incorrect distractors.

{{.Schema}}`,
	Flashcards: `Based on this video, generate about {{.Count}} flashcards covering its key concepts.
The front is a clear, concise question or term; the back is an accurate, informative answer or definition.

{{.Schema}}`,
	Notes: `Based on this video, create structured notes organised into sections with titles and content.
Focus on key concepts, important information and main points.

{{.Schema}}`,
	Chat: `Based on this video, provide a comprehensive summary.
Include the main topics and key points, important concepts and their explanations,
notable examples or demonstrations, and the key takeaways.
Write it as clear, structured plain text.`,
}

var (
	quizTemplates  = map[QuizType]*template.Template{}
	textTemplates  = map[ArtifactType]*template.Template{}
	videoTemplates = map[ArtifactType]*template.Template{}
	schemas        = map[ArtifactType]string{
		Quiz:       quizSchema,
		Flashcards: flashcardSchema,
		Notes:      notesSchema,
	}
)

func init() {
	for qt, body := range quizBodies {
		quizTemplates[qt] = template.Must(template.New(string(qt)).Parse(quizHeader + body + quizFooter))
	}
	textTemplates[Flashcards] = template.Must(template.New("flashcards").Parse(flashcardTemplate))
	textTemplates[Notes] = template.Must(template.New("notes").Parse(notesTemplate))
	textTemplates[Chat] = template.Must(template.New("chat").Parse(chatTemplate))
	for a, text := range videoPrompts {
		videoTemplates[a] = template.Must(template.New("video_" + a.String()).Parse(text))
	}
}
