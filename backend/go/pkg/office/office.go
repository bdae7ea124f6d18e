// Package office renders study material into Office documents: notes as .docx and quizzes as .xlsx.
package office

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/unidoc/unioffice/v2/common/license"
	"github.com/unidoc/unioffice/v2/document"
	"github.com/xuri/excelize/v2"
)

const (
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	quizSheet = "Quiz"
)

// SetLicense registers a metered unioffice key. Writing .docx files fails without one.
func SetLicense(key string) error {
	if key == "" {
		return nil
	}
	return license.SetMeteredKey(key)
}

// Section is one heading and its body text.
type Section struct {
	Title   string
	Content string
}

// WriteNotesDocx writes a notes document: a title, an optional source line, then one heading per section.
func WriteNotesDocx(w io.Writer, title, sourceURL string, sections []Section) error {
	doc := document.New()

	p := doc.AddParagraph()
	p.SetStyle("Title")
	p.AddRun().AddText(title)

	if sourceURL != "" {
		run := doc.AddParagraph().AddRun()
		run.Properties().SetItalic(true)
		run.AddText("Source: " + sourceURL)
	}

	for _, sec := range sections {
		if sec.Title != "" {
			h := doc.AddParagraph()
			h.SetStyle("Heading1")
			h.AddRun().AddText(sec.Title)
		}
		for _, line := range strings.Split(sec.Content, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			doc.AddParagraph().AddRun().AddText(line)
		}
	}

	if err := doc.Save(w); err != nil {
		return fmt.Errorf("failed to write docx: %w", err)
	}
	return nil
}

// QuizRow is one question of an exported quiz.
type QuizRow struct {
	Question string
	Type     string
	Options  []string
	Answer   string
}

// QuizXlsx renders a quiz as a single-sheet workbook with one question per row.
func QuizXlsx(title string, rows []QuizRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quizSheet); err != nil {
		return nil, err
	}

	maxOptions := 0
	for _, r := range rows {
		if len(r.Options) > maxOptions {
			maxOptions = len(r.Options)
		}
	}

	if err := f.SetCellValue(quizSheet, "A1", title); err != nil {
		return nil, err
	}
	header := []interface{}{"#", "Question", "Type"}
	for i := 0; i < maxOptions; i++ {
		header = append(header, fmt.Sprintf("Option %c", 'A'+i))
	}
	header = append(header, "Answer")
	if err := f.SetSheetRow(quizSheet, "A3", &header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		row := []interface{}{i + 1, r.Question, r.Type}
		for j := 0; j < maxOptions; j++ {
			opt := ""
			if j < len(r.Options) {
				opt = r.Options[j]
			}
			row = append(row, opt)
		}
		row = append(row, r.Answer)

		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(quizSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(quizSheet, "B", "B", 60); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
