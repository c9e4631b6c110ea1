package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"downloader/domain/dto"

	"github.com/hibiken/asynq"
)

const (
	// ProcessDownloadTask is scheduled each time a download is requested.
	ProcessDownloadTask = "download:process"
	asynqQueueName      = "downloads"
)

// AsynqQueue hands tasks to a separate worker process through Redis.
type AsynqQueue struct {
	client *asynq.Client
}

func NewAsynqQueue(client *asynq.Client) *AsynqQueue {
	return &AsynqQueue{client: client}
}

func RedisOpt(addr, username, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Username: username, Password: password, DB: db}
}

func NewTask(task dto.DownloadTask) (*asynq.Task, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ProcessDownloadTask, data), nil
}

// Enqueue schedules the task with no retries; a failed extraction is terminal.
func (q *AsynqQueue) Enqueue(ctx context.Context, task dto.DownloadTask) error {
	t, err := NewTask(task)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, t, asynq.MaxRetry(0), asynq.Queue(asynqQueueName)); err != nil {
		return fmt.Errorf("enqueue download task: %w", err)
	}
	return nil
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// Mux registers handle for download tasks on an asynq worker.
func Mux(handle Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(ProcessDownloadTask, func(ctx context.Context, t *asynq.Task) error {
		var task dto.DownloadTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
		}
		return handle(ctx, task)
	})
	return mux
}

// NewServer builds the worker-side asynq server consuming the downloads queue.
func NewServer(opt asynq.RedisClientOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{asynqQueueName: 1},
	})
}
