// Package consumer 从 Kafka 读取 PDF 处理任务并交给处理函数。
package consumer

import (
	"context"
	"encoding/json"

	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/publisher"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader 是 kafka.Reader 中被使用的部分。
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TaskConsumer is responsible for consuming PDF tasks from Kafka.
type TaskConsumer struct {
	reader MessageReader
	logger *logger.Logger
}

// NewTaskConsumer creates a new TaskConsumer.
func NewTaskConsumer(reader MessageReader, log *logger.Logger) *TaskConsumer {
	if log == nil {
		log = logger.Discard()
	}
	return &TaskConsumer{reader: reader, logger: log}
}

// Run consumes messages until ctx is cancelled. Every fetched message is committed after
// the handler returns, whether or not it succeeded; failures are recorded on the document
// by the handler itself.
func (c *TaskConsumer) Run(ctx context.Context, handler publisher.Handler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping Kafka task consumer...")
				return
			}
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
			continue
		}

		var task models.PDFTask
		if err := json.Unmarshal(msg.Value, &task); err != nil || task.DocumentID == "" {
			c.logger.WithPayload(map[string]interface{}{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Warn("Skipping malformed PDF task")
		} else if err := handler(ctx, task); err != nil {
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
				"pdf_id":    task.DocumentID,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("Error handling PDF task")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
		}
	}
}

// Start runs the consumer in a new goroutine.
func (c *TaskConsumer) Start(ctx context.Context, handler publisher.Handler) {
	go c.Run(ctx, handler)
}

// Close closes the underlying Kafka reader.
func (c *TaskConsumer) Close() error {
	return c.reader.Close()
}
