package queue

import (
	"context"
	"sync"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/metrics"
)

// Handler runs one download task. Errors are logged; tasks are never retried.
type Handler func(ctx context.Context, task dto.DownloadTask) error

// MemoryQueue is a bounded in-process queue drained by a fixed worker pool.
type MemoryQueue struct {
	tasks   chan dto.DownloadTask
	metrics metrics.IDownloadMetrics
	wg      sync.WaitGroup
}

func NewMemoryQueue(capacity int, m metrics.IDownloadMetrics) *MemoryQueue {
	if capacity <= 0 {
		capacity = 100
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &MemoryQueue{tasks: make(chan dto.DownloadTask, capacity), metrics: m}
}

// Enqueue never blocks; a full queue returns model.ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, task dto.DownloadTask) error {
	select {
	case q.tasks <- task:
		q.metrics.QueueDepth(len(q.tasks))
		return nil
	default:
		return model.ErrQueueFull
	}
}

func (q *MemoryQueue) Depth() int {
	return len(q.tasks)
}

// Start launches workers that run until ctx is cancelled. Tasks still queued at
// that point stay pending in the store and are picked up by startup recovery.
func (q *MemoryQueue) Start(ctx context.Context, workers int, handle Handler) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i, handle)
	}
	logger.GetLogger().WithField("workers", workers).Info("Download workers started")
}

func (q *MemoryQueue) work(ctx context.Context, id int, handle Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.metrics.QueueDepth(len(q.tasks))
			q.run(ctx, id, handle, task)
		}
	}
}

func (q *MemoryQueue) run(ctx context.Context, worker int, handle Handler, task dto.DownloadTask) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"panic":       r,
				"worker":      worker,
				"download_id": task.DownloadID,
			}).Error("download worker panic recovered")
		}
	}()
	if err := handle(ctx, task); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":       err,
			"worker":      worker,
			"download_id": task.DownloadID,
		}).Error("download task failed")
	}
}

// Wait blocks until every worker has returned.
func (q *MemoryQueue) Wait() {
	q.wg.Wait()
}
