package office

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unioffice/v2/document"
	"github.com/xuri/excelize/v2"
)

func TestQuizXlsx(t *testing.T) {
	data, err := QuizXlsx("Biology", []QuizRow{
		{Question: "Is the sky blue?", Type: "true_false", Options: []string{"true", "false"}, Answer: "true"},
		{Question: "Pick a primary colour", Type: "multiple_choice", Options: []string{"Red", "Green", "Blue", "Pink"}, Answer: "Red"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(quizSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Biology", rows[0][0])
	assert.Equal(t, []string{"#", "Question", "Type", "Option A", "Option B", "Option C", "Option D", "Answer"}, rows[2])
	assert.Equal(t, "Is the sky blue?", rows[3][1])
	assert.Equal(t, "true", rows[3][7])
	assert.Equal(t, "Blue", rows[4][5])
}

func TestWriteNotesDocx(t *testing.T) {
	key := os.Getenv("UNIDOC_LICENSE_API_KEY")
	if key == "" {
		t.Skip("UNIDOC_LICENSE_API_KEY not set")
	}
	require.NoError(t, SetLicense(key))

	var buf bytes.Buffer
	err := WriteNotesDocx(&buf, "Photosynthesis", "https://www.youtube.com/watch?v=abc", []Section{
		{Title: "Overview", Content: "Plants turn light into energy.\n\nChlorophyll is green."},
	})
	require.NoError(t, err)

	doc, err := document.Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var texts []string
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			texts = append(texts, r.Text())
		}
	}
	assert.Contains(t, texts, "Photosynthesis")
	assert.Contains(t, texts, "Overview")
	assert.Contains(t, texts, "Chlorophyll is green.")
}
