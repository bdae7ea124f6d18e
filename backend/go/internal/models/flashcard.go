package models

import "time"

// FlashcardSet 是一组记忆卡片。
type FlashcardSet struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"index;not null" json:"-"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	DocumentID  *string     `gorm:"size:36;index" json:"pdf_id,omitempty"`
	Placeholder bool        `json:"placeholder"`
	Cards       []Flashcard `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE;" json:"cards"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (FlashcardSet) TableName() string {
	return "flashcard_sets"
}

// Flashcard 是一张卡片，正面为问题或术语，背面为答案。
type Flashcard struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SetID    uint   `gorm:"index;not null" json:"-"`
	Position int    `json:"position"`
	Front    string `gorm:"type:text;not null" json:"front"`
	Back     string `gorm:"type:text;not null" json:"back"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
