package service

import (
	"context"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
)

// recentLimit 是 recent 接口返回的条目数。
const recentLimit = 5

// QuestionInput 是手动添加的一道题。
type QuestionInput struct {
	Question      string
	Type          string
	Options       []string
	CorrectAnswer string
}

// QuizInput 是手动创建测验的参数。
type QuizInput struct {
	Title       string
	Description string
	QuizType    string
	Difficulty  string
	Language    string
	Questions   []QuestionInput
}

// CardInput 是手动创建的一张卡片。
type CardInput struct {
	Front string
	Back  string
}

// SectionInput 是手动创建的笔记章节。
type SectionInput struct {
	Title   string
	Content string
}

// validateQuestion 用生成流程相同的规则校验手动输入的题目。
func validateQuestion(quizType generation.QuizType, in QuestionInput) (models.QuizQuestion, error) {
	item := generation.QuizItem{
		Question:      in.Question,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Type:          generation.QuizType(strings.ToLower(strings.TrimSpace(in.Type))),
	}
	valid := generation.ValidateQuestions(quizType, []generation.QuizItem{item})
	if len(valid) == 0 {
		return models.QuizQuestion{}, apperr.Newf(apperr.BadInput, "invalid %s question: %q", quizType, strings.TrimSpace(in.Question))
	}
	q := valid[0]
	return models.QuizQuestion{
		QuestionType:  string(q.Type),
		Question:      q.Question,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
	}, nil
}

// CreateQuiz 手动创建一套测验。
func (s *Service) CreateQuiz(ctx context.Context, userID uint, in QuizInput) (*models.Quiz, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.New(apperr.BadInput, "title is required")
	}
	quizType, err := generation.ParseQuizType(in.QuizType)
	if err != nil {
		return nil, err
	}
	difficulty, err := generation.ParseDifficulty(in.Difficulty, generation.Medium)
	if err != nil {
		return nil, err
	}
	quiz := &models.Quiz{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		QuizType:    string(quizType),
		Difficulty:  string(difficulty),
		Language:    titleOr(strings.TrimSpace(in.Language), generation.DefaultLanguage),
	}
	for _, qin := range in.Questions {
		q, err := validateQuestion(quizType, qin)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// ListQuizzes 列出用户的全部测验。
func (s *Service) ListQuizzes(ctx context.Context, userID uint) ([]models.Quiz, error) {
	return s.store.ListQuizzes(ctx, userID)
}

// RecentQuizzes 返回最近的几份测验。
func (s *Service) RecentQuizzes(ctx context.Context, userID uint) ([]models.Quiz, error) {
	return s.store.RecentQuizzes(ctx, userID, recentLimit)
}

// GetQuiz 返回属于用户的测验。
func (s *Service) GetQuiz(ctx context.Context, userID, id uint) (*models.Quiz, error) {
	return s.store.GetQuiz(ctx, id, userID)
}

// DeleteQuiz 删除测验。
func (s *Service) DeleteQuiz(ctx context.Context, userID, id uint) error {
	return s.store.DeleteQuiz(ctx, id, userID)
}

// AddQuestion 向测验追加一道题，题目按测验的题型校验。
func (s *Service) AddQuestion(ctx context.Context, userID, quizID uint, in QuestionInput) (*models.QuizQuestion, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	quizType, err := generation.ParseQuizType(quiz.QuizType)
	if err != nil {
		quizType = generation.Mixed
	}
	q, err := validateQuestion(quizType, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddQuestion(ctx, quiz.ID, userID, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateFlashcardSet 手动创建一组卡片。
func (s *Service) CreateFlashcardSet(ctx context.Context, userID uint, title string, cards []CardInput) (*models.FlashcardSet, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperr.New(apperr.BadInput, "title is required")
	}
	set := &models.FlashcardSet{UserID: userID, Title: strings.TrimSpace(title)}
	for i, c := range cards {
		front, back := strings.TrimSpace(c.Front), strings.TrimSpace(c.Back)
		if front == "" || back == "" {
			return nil, apperr.Newf(apperr.BadInput, "card %d must have both front and back", i+1)
		}
		set.Cards = append(set.Cards, models.Flashcard{Front: front, Back: back})
	}
	if err := s.store.SaveFlashcardSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// ListFlashcardSets 列出用户的全部卡片组。
func (s *Service) ListFlashcardSets(ctx context.Context, userID uint) ([]models.FlashcardSet, error) {
	return s.store.RecentFlashcardSets(ctx, userID, 0)
}

// RecentFlashcardSets 返回最近的几组卡片。
func (s *Service) RecentFlashcardSets(ctx context.Context, userID uint) ([]models.FlashcardSet, error) {
	return s.store.RecentFlashcardSets(ctx, userID, recentLimit)
}

func (s *Service) GetFlashcardSet(ctx context.Context, userID, id uint) (*models.FlashcardSet, error) {
	return s.store.GetFlashcardSet(ctx, id, userID)
}

func (s *Service) DeleteFlashcardSet(ctx context.Context, userID, id uint) error {
	return s.store.DeleteFlashcardSet(ctx, id, userID)
}

// CreateNoteSet 手动创建一份笔记。
func (s *Service) CreateNoteSet(ctx context.Context, userID uint, title, sourceText string, sections []SectionInput) (*models.NoteSet, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperr.New(apperr.BadInput, "title is required")
	}
	notes := &models.NoteSet{UserID: userID, Title: strings.TrimSpace(title), SourceText: sourceText}
	for i, sec := range sections {
		if strings.TrimSpace(sec.Content) == "" {
			return nil, apperr.Newf(apperr.BadInput, "section %d has no content", i+1)
		}
		notes.Sections = append(notes.Sections, models.NoteSection{
			Title:   strings.TrimSpace(sec.Title),
			Content: sec.Content,
		})
	}
	if err := s.store.SaveNoteSet(ctx, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Service) ListNoteSets(ctx context.Context, userID uint) ([]models.NoteSet, error) {
	return s.store.RecentNoteSets(ctx, userID, 0)
}

func (s *Service) RecentNoteSets(ctx context.Context, userID uint) ([]models.NoteSet, error) {
	return s.store.RecentNoteSets(ctx, userID, recentLimit)
}

func (s *Service) GetNoteSet(ctx context.Context, userID, id uint) (*models.NoteSet, error) {
	return s.store.GetNoteSet(ctx, id, userID)
}

func (s *Service) DeleteNoteSet(ctx context.Context, userID, id uint) error {
	return s.store.DeleteNoteSet(ctx, id, userID)
}
