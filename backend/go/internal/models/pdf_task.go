package models

import "time"

// PDFTask 是发送到 Kafka 的后台 PDF 处理任务。
type PDFTask struct {
	TaskID     string    `json:"taskID"`     // 任务唯一标识 (UUID)
	DocumentID string    `json:"documentID"` // 待处理的文档
	UserID     uint      `json:"userID"`     // 文档所有者
	CreatedAt  time.Time `json:"createdAt"`  // 任务创建时间
}
