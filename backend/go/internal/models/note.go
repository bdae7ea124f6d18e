package models

import "time"

// NoteSet 是一份按章节组织的学习笔记。
type NoteSet struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"index;not null" json:"-"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	SourceText  string        `gorm:"type:text" json:"source_text,omitempty"` // 原文摘录
	DocumentID  *string       `gorm:"size:36;index" json:"pdf_id,omitempty"`
	Placeholder bool          `json:"placeholder"`
	Sections    []NoteSection `gorm:"foreignKey:NoteSetID;constraint:OnDelete:CASCADE;" json:"sections"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (NoteSet) TableName() string {
	return "note_sets"
}

// NoteSection 是笔记中的一个章节。
type NoteSection struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	NoteSetID uint   `gorm:"index;not null" json:"-"`
	Position  int    `json:"position"`
	Title     string `gorm:"size:255" json:"title"`
	Content   string `gorm:"type:text" json:"content"`
}

func (NoteSection) TableName() string {
	return "note_sections"
}
