package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz 是一份生成或手动创建的测验。
type Quiz struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index;not null" json:"-"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	QuizType    string         `gorm:"size:32" json:"quiz_type"`
	Difficulty  string         `gorm:"size:16" json:"difficulty"`
	Language    string         `gorm:"size:32" json:"language"`
	DocumentID  *string        `gorm:"size:36;index" json:"pdf_id,omitempty"`
	Placeholder bool           `json:"placeholder"`
	Questions   []QuizQuestion `gorm:"constraint:OnDelete:CASCADE;" json:"questions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 是测验中的一道题。CorrectAnswer 总是 Options 中的一项。
type QuizQuestion struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	QuizID        uint                        `gorm:"index;not null" json:"-"`
	Position      int                         `json:"position"`
	QuestionType  string                      `gorm:"size:32" json:"type"`
	Question      string                      `gorm:"type:text;not null" json:"question"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `gorm:"type:text;not null" json:"correct_answer"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
