// Package publisher 分发后台 PDF 处理任务：启用 Kafka 时写入主题，否则在进程内的 goroutine 中执行。
package publisher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Dispatcher 把一个 PDF 任务交给后台处理，调用方不等待处理结果。
type Dispatcher interface {
	Dispatch(ctx context.Context, task models.PDFTask) error
}

// Handler 处理一个 PDF 任务。
type Handler func(ctx context.Context, task models.PDFTask) error

// MessageWriter 是 kafka.Writer 中被使用的部分。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is responsible for publishing PDF tasks to Kafka.
type KafkaPublisher struct {
	writer MessageWriter
	logger *logger.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher.
func NewKafkaPublisher(writer MessageWriter, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &KafkaPublisher{writer: writer, logger: log}
}

// Dispatch sends the task to the topic, keyed by document id.
func (p *KafkaPublisher) Dispatch(ctx context.Context, task models.PDFTask) error {
	msgBytes, err := json.Marshal(task)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal task for Kafka")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.DocumentID),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"pdf_id": task.DocumentID}).Error("Failed to write message to Kafka")
		return err
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LocalDispatcher 在进程内以有限的并发执行任务。
type LocalDispatcher struct {
	handler Handler
	sem     chan struct{}
	wg      sync.WaitGroup
	logger  *logger.Logger
}

// NewLocalDispatcher 创建一个进程内分发器，workers 为同时执行的任务数上限。
func NewLocalDispatcher(handler Handler, workers int, log *logger.Logger) *LocalDispatcher {
	if workers <= 0 {
		workers = 2
	}
	if log == nil {
		log = logger.Discard()
	}
	return &LocalDispatcher{handler: handler, sem: make(chan struct{}, workers), logger: log}
}

// Dispatch 立即返回，任务在后台 goroutine 中执行。任务不会随请求的 ctx 一起取消。
func (d *LocalDispatcher) Dispatch(ctx context.Context, task models.PDFTask) error {
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		if err := d.handler(bg, task); err != nil {
			d.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"pdf_id": task.DocumentID, "task_id": task.TaskID}).
				Error("后台处理 PDF 失败")
		}
	}()
	return nil
}

// Wait 等待所有已分发的任务结束，关闭服务时调用。
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
