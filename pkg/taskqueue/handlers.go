package taskqueue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// DocumentChunker 文档切分执行接口
// 由切分服务实现，worker通过该接口回调业务逻辑
type DocumentChunker interface {
	ChunkFromPayload(ctx context.Context, payload *ChunkDocumentPayload) (*ChunkDocumentResult, error)
}

// Worker 任务队列工作者
// 从队列消费任务并交给切分服务处理
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	queue   Queue
	chunker DocumentChunker
	logger  *logrus.Logger
}

// NewWorker 创建任务队列工作者
func NewWorker(cfg *Config, queue Queue, chunker DocumentChunker, logger *logrus.Logger) *Worker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
		},
	)

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		queue:   queue,
		chunker: chunker,
		logger:  logger,
	}

	w.mux.HandleFunc(string(TaskChunkDocument), w.handleChunkDocument)
	return w
}

// Start 启动工作者，开始处理任务
func (w *Worker) Start() error {
	w.logger.Info("Task queue worker starting")
	return w.server.Start(w.mux)
}

// Stop 停止工作者
func (w *Worker) Stop() {
	w.server.Shutdown()
	w.logger.Info("Task queue worker stopped")
}

// handleChunkDocument 处理文档切分任务
func (w *Worker) handleChunkDocument(ctx context.Context, t *asynq.Task) error {
	taskID := string(t.Payload())

	task, err := w.queue.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	var payload ChunkDocumentPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		// 载荷损坏时重试没有意义
		_ = w.queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, ErrInvalidPayload.Error())
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
		w.logger.WithError(err).Warn("failed to mark task as processing")
	}

	result, err := w.chunker.ChunkFromPayload(ctx, &payload)
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"task_id":     taskID,
			"document_id": payload.DocumentID,
		}).WithError(err).Error("chunk document task failed")

		if updateErr := w.queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, err.Error()); updateErr != nil {
			w.logger.WithError(updateErr).Warn("failed to mark task as failed")
		}
		return err
	}

	if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, ""); err != nil {
		w.logger.WithError(err).Warn("failed to mark task as completed")
	}

	w.logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"document_id": payload.DocumentID,
		"chunk_count": result.ChunkCount,
	}).Info("chunk document task completed")

	return nil
}
