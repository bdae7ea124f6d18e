package store

import (
	"context"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// saveWithChildren 先写入父记录，再批量写入子记录。
// 子记录写入失败时删除已写入的父记录，保证不会留下没有条目的测验、卡片集或笔记。
func (s *Store) saveWithChildren(ctx context.Context, what string, parent interface{}, children func(db *gorm.DB) error) error {
	db := s.DB.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(parent).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to save "+what, err)
	}
	if err := children(db); err != nil {
		if delErr := db.Delete(parent).Error; delErr != nil {
			s.log.WithField("artifact", what).Error("补偿删除失败: " + delErr.Error())
		}
		return apperr.Wrap(apperr.Internal, "failed to save "+what+" items", err)
	}
	return nil
}

// SaveQuiz 保存测验及其题目。
func (s *Store) SaveQuiz(ctx context.Context, quiz *models.Quiz) error {
	return s.saveWithChildren(ctx, "quiz", quiz, func(db *gorm.DB) error {
		if len(quiz.Questions) == 0 {
			return nil
		}
		for i := range quiz.Questions {
			quiz.Questions[i].QuizID = quiz.ID
			quiz.Questions[i].Position = i + 1
		}
		return db.Create(&quiz.Questions).Error
	})
}

// SaveFlashcardSet 保存卡片集及其卡片。
func (s *Store) SaveFlashcardSet(ctx context.Context, set *models.FlashcardSet) error {
	return s.saveWithChildren(ctx, "flashcard set", set, func(db *gorm.DB) error {
		if len(set.Cards) == 0 {
			return nil
		}
		for i := range set.Cards {
			set.Cards[i].SetID = set.ID
			set.Cards[i].Position = i + 1
		}
		return db.Create(&set.Cards).Error
	})
}

// SaveNoteSet 保存笔记及其章节。
func (s *Store) SaveNoteSet(ctx context.Context, notes *models.NoteSet) error {
	return s.saveWithChildren(ctx, "notes", notes, func(db *gorm.DB) error {
		if len(notes.Sections) == 0 {
			return nil
		}
		for i := range notes.Sections {
			notes.Sections[i].NoteSetID = notes.ID
			notes.Sections[i].Position = i + 1
		}
		return db.Create(&notes.Sections).Error
	})
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

// ListQuizzes 列出用户的全部测验。
func (s *Store) ListQuizzes(ctx context.Context, userID uint) ([]models.Quiz, error) {
	return s.RecentQuizzes(ctx, userID, 0)
}

// RecentQuizzes 返回最近的 limit 份测验，limit 为 0 表示不限制。
func (s *Store) RecentQuizzes(ctx context.Context, userID uint, limit int) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	q := s.DB.WithContext(ctx).
		Preload("Questions", byPosition).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&quizzes).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list quizzes", err)
	}
	return quizzes, nil
}

// GetQuiz 返回属于用户的测验。
func (s *Store) GetQuiz(ctx context.Context, id, userID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.DB.WithContext(ctx).
		Preload("Questions", byPosition).
		Where("id = ? AND user_id = ?", id, userID).
		First(&quiz).Error
	if err != nil {
		return nil, notFound(err, "quiz")
	}
	return &quiz, nil
}

// DeleteQuiz 删除测验及其题目。
func (s *Store) DeleteQuiz(ctx context.Context, id, userID uint) error {
	quiz, err := s.GetQuiz(ctx, id, userID)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, quiz.ID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete quiz", err)
	}
	return nil
}

// AddQuestion 在测验末尾追加一道题。
func (s *Store) AddQuestion(ctx context.Context, quizID, userID uint, q *models.QuizQuestion) error {
	quiz, err := s.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return err
	}
	q.ID = 0
	q.QuizID = quiz.ID
	q.Position = len(quiz.Questions) + 1
	if err := s.DB.WithContext(ctx).Create(q).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to add question", err)
	}
	return nil
}

// RecentFlashcardSets 返回最近的 limit 个卡片集，limit 为 0 表示不限制。
func (s *Store) RecentFlashcardSets(ctx context.Context, userID uint, limit int) ([]models.FlashcardSet, error) {
	var sets []models.FlashcardSet
	q := s.DB.WithContext(ctx).
		Preload("Cards", byPosition).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sets).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list flashcard sets", err)
	}
	return sets, nil
}

// GetFlashcardSet 返回属于用户的卡片集。
func (s *Store) GetFlashcardSet(ctx context.Context, id, userID uint) (*models.FlashcardSet, error) {
	var set models.FlashcardSet
	err := s.DB.WithContext(ctx).
		Preload("Cards", byPosition).
		Where("id = ? AND user_id = ?", id, userID).
		First(&set).Error
	if err != nil {
		return nil, notFound(err, "flashcard set")
	}
	return &set, nil
}

// DeleteFlashcardSet 删除卡片集及其卡片。
func (s *Store) DeleteFlashcardSet(ctx context.Context, id, userID uint) error {
	set, err := s.GetFlashcardSet(ctx, id, userID)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ?", set.ID).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.FlashcardSet{}, set.ID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete flashcard set", err)
	}
	return nil
}

// RecentNoteSets 返回最近的 limit 份笔记，limit 为 0 表示不限制。
func (s *Store) RecentNoteSets(ctx context.Context, userID uint, limit int) ([]models.NoteSet, error) {
	var notes []models.NoteSet
	q := s.DB.WithContext(ctx).
		Preload("Sections", byPosition).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&notes).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list notes", err)
	}
	return notes, nil
}

// GetNoteSet 返回属于用户的笔记。
func (s *Store) GetNoteSet(ctx context.Context, id, userID uint) (*models.NoteSet, error) {
	var notes models.NoteSet
	err := s.DB.WithContext(ctx).
		Preload("Sections", byPosition).
		Where("id = ? AND user_id = ?", id, userID).
		First(&notes).Error
	if err != nil {
		return nil, notFound(err, "notes")
	}
	return &notes, nil
}

// DeleteNoteSet 删除笔记及其章节。
func (s *Store) DeleteNoteSet(ctx context.Context, id, userID uint) error {
	notes, err := s.GetNoteSet(ctx, id, userID)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_set_id = ?", notes.ID).Delete(&models.NoteSection{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.NoteSet{}, notes.ID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete notes", err)
	}
	return nil
}
