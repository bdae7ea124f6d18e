package models

// All 返回需要自动迁移的全部表模型。
func All() []interface{} {
	return []interface{}{
		&User{},
		&Document{},
		&Quiz{},
		&QuizQuestion{},
		&FlashcardSet{},
		&Flashcard{},
		&NoteSet{},
		&NoteSection{},
		&ChatMessage{},
		&YouTubeContent{},
		&IndexedChunk{},
	}
}
