package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
)

// GenerateParams 是基于 PDF 生成内容的请求参数。
type GenerateParams struct {
	DocumentID string
	Count      int
	Difficulty string
	Language   string
	QuizType   string
	Title      string
}

// source 是一次生成所依赖的文档和原文。
type source struct {
	doc  *models.Document
	text string
}

func (s *Service) loadSource(ctx context.Context, userID uint, documentID string) (*source, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, apperr.New(apperr.BadInput, "pdf_id is required")
	}
	doc, err := s.store.GetDocument(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	text, err := s.extractor.ExtractPDF(ctx, doc.ID, userID)
	if err != nil {
		return nil, err
	}
	return &source{doc: doc, text: truncateRunes(text, s.cfg.MaxSourceChars)}, nil
}

func (s *Service) buildRequest(artifact generation.ArtifactType, p GenerateParams, text string) (generation.Request, error) {
	count := p.Count
	if count == 0 {
		count = s.cfg.DefaultItems
	}
	if count < 1 || count > s.cfg.MaxItems {
		return generation.Request{}, apperr.Newf(apperr.BadInput, "num_items must be between 1 and %d", s.cfg.MaxItems)
	}
	fallback := generation.Difficulty(s.cfg.DefaultDifficulty)
	if fallback == "" {
		fallback = generation.Medium
	}
	difficulty, err := generation.ParseDifficulty(p.Difficulty, fallback)
	if err != nil {
		return generation.Request{}, err
	}
	quizType := generation.MultipleChoice
	if artifact == generation.Quiz {
		if quizType, err = generation.ParseQuizType(p.QuizType); err != nil {
			return generation.Request{}, err
		}
	}
	language := strings.TrimSpace(p.Language)
	if language == "" {
		language = titleOr(s.cfg.DefaultLanguage, generation.DefaultLanguage)
	}
	return generation.Request{
		Artifact:   artifact,
		QuizType:   quizType,
		Difficulty: difficulty,
		Language:   language,
		Count:      count,
		Text:       text,
	}, nil
}

// generate 执行一次完整的生成并写入审计记录。
func (s *Service) generate(ctx context.Context, userID uint, artifact generation.ArtifactType, p GenerateParams) (*source, generation.Request, generation.Output, error) {
	src, err := s.loadSource(ctx, userID, p.DocumentID)
	if err != nil {
		return nil, generation.Request{}, generation.Output{}, err
	}
	req, err := s.buildRequest(artifact, p, src.text)
	if err != nil {
		return nil, req, generation.Output{}, err
	}
	out, err := s.invoker.Generate(ctx, req)
	if err != nil {
		s.record(ctx, userID, artifact, src.doc.SourceKey(), 0, out, err)
		return nil, req, out, err
	}
	return src, req, out, nil
}

// GenerateQuiz 基于 PDF 生成并保存一套测验。
// 模型输出无法解析时保存占位测验，Placeholder 为 true。
func (s *Service) GenerateQuiz(ctx context.Context, userID uint, p GenerateParams) (*models.Quiz, error) {
	src, req, out, err := s.generate(ctx, userID, generation.Quiz, p)
	if err != nil {
		return nil, err
	}
	docID := src.doc.ID
	quiz := &models.Quiz{
		UserID:      userID,
		Title:       titleOr(p.Title, artifactTitle("Quiz", src.doc.Title)),
		Description: fmt.Sprintf("%d %s questions generated from %s", out.Len(), req.QuizType, src.doc.Title),
		QuizType:    string(req.QuizType),
		Difficulty:  string(req.Difficulty),
		Language:    req.Language,
		DocumentID:  &docID,
		Placeholder: out.Placeholder,
		Questions:   quizQuestions(out.Questions),
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	s.record(ctx, userID, generation.Quiz, src.doc.SourceKey(), quiz.ID, out, nil)
	return quiz, nil
}

// GenerateFlashcards 基于 PDF 生成并保存一组卡片。
func (s *Service) GenerateFlashcards(ctx context.Context, userID uint, p GenerateParams) (*models.FlashcardSet, error) {
	src, _, out, err := s.generate(ctx, userID, generation.Flashcards, p)
	if err != nil {
		return nil, err
	}
	docID := src.doc.ID
	set := &models.FlashcardSet{
		UserID:      userID,
		Title:       titleOr(p.Title, artifactTitle("Flashcards", src.doc.Title)),
		DocumentID:  &docID,
		Placeholder: out.Placeholder,
		Cards:       flashcards(out.Cards),
	}
	if err := s.store.SaveFlashcardSet(ctx, set); err != nil {
		return nil, err
	}
	s.record(ctx, userID, generation.Flashcards, src.doc.SourceKey(), set.ID, out, nil)
	return set, nil
}

// GenerateNotes 基于 PDF 生成并保存一份笔记。
func (s *Service) GenerateNotes(ctx context.Context, userID uint, p GenerateParams) (*models.NoteSet, error) {
	src, _, out, err := s.generate(ctx, userID, generation.Notes, p)
	if err != nil {
		return nil, err
	}
	docID := src.doc.ID
	notes := &models.NoteSet{
		UserID:      userID,
		Title:       titleOr(p.Title, artifactTitle("Notes", src.doc.Title)),
		SourceText:  truncateRunes(src.text, 2000),
		DocumentID:  &docID,
		Placeholder: out.Placeholder,
		Sections:    noteSections(out.Sections),
	}
	if err := s.store.SaveNoteSet(ctx, notes); err != nil {
		return nil, err
	}
	s.record(ctx, userID, generation.Notes, src.doc.SourceKey(), notes.ID, out, nil)
	return notes, nil
}

func quizQuestions(items []generation.QuizItem) []models.QuizQuestion {
	out := make([]models.QuizQuestion, len(items))
	for i, q := range items {
		out[i] = models.QuizQuestion{
			QuestionType:  string(q.Type),
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return out
}

func flashcards(cards []generation.Card) []models.Flashcard {
	out := make([]models.Flashcard, len(cards))
	for i, c := range cards {
		out[i] = models.Flashcard{Front: c.Front, Back: c.Back}
	}
	return out
}

func noteSections(sections []generation.Section) []models.NoteSection {
	out := make([]models.NoteSection, len(sections))
	for i, sec := range sections {
		out[i] = models.NoteSection{Title: sec.Title, Content: sec.Content}
	}
	return out
}
