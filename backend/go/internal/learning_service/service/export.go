package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/office"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename 把标题转换为安全的下载文件名。
func Filename(title, ext string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(title, "_"), "_")
	if name == "" {
		name = "export"
	}
	return name + ext
}

// ExportQuiz 把测验导出为 .xlsx，返回文件内容与文件名。
func (s *Service) ExportQuiz(ctx context.Context, userID, quizID uint) ([]byte, string, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, "", err
	}
	rows := make([]office.QuizRow, len(quiz.Questions))
	for i, q := range quiz.Questions {
		rows[i] = office.QuizRow{
			Question: q.Question,
			Type:     q.QuestionType,
			Options:  q.Options,
			Answer:   q.CorrectAnswer,
		}
	}
	data, err := office.QuizXlsx(quiz.Title, rows)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "failed to export quiz", err)
	}
	return data, Filename(quiz.Title, ".xlsx"), nil
}

// WriteVideoNotes 把前端提交的视频笔记写成 .docx。
func (s *Service) WriteVideoNotes(w io.Writer, title, videoURL string, notes []SectionInput) error {
	if len(notes) == 0 {
		return apperr.New(apperr.BadInput, "notes are required")
	}
	sections := make([]office.Section, len(notes))
	for i, n := range notes {
		sections[i] = office.Section{Title: n.Title, Content: n.Content}
	}
	if err := office.WriteNotesDocx(w, titleOr(strings.TrimSpace(title), "YouTube Notes"), videoURL, sections); err != nil {
		return apperr.Wrap(apperr.Internal, fmt.Sprintf("failed to build notes document %q", title), err)
	}
	return nil
}
