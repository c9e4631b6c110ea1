package usecase

import (
	"context"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/domain/repository"
	"downloader/infrastructure/cache"
	"downloader/infrastructure/clients/extraction"
	"downloader/infrastructure/clients/google"
	"downloader/infrastructure/events"
	"downloader/infrastructure/metrics"
	"downloader/infrastructure/storage"
	"downloader/infrastructure/utils"
)

// IDownloadQueue accepts work for the lifecycle workers. Enqueue must not block;
// a saturated queue returns model.ErrQueueFull.
type IDownloadQueue interface {
	Enqueue(ctx context.Context, task dto.DownloadTask) error
}

// Deps are the collaborators shared by the usecases. Nil optional fields are
// replaced with no-op implementations.
type Deps struct {
	Downloads repository.IDownload
	Users     repository.IUser
	Queue     IDownloadQueue
	Extractor extraction.IExtractor
	Store     storage.IFileStore
	Cache     cache.IDownloadCache
	Events    events.IPublisher
	Metrics   metrics.IDownloadMetrics
	Google    google.IGoogleAuth
	Clock     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = cache.NewDownloadCache(nil, 0)
	}
	if d.Events == nil {
		d.Events = events.NewFanout()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Clock == nil {
		d.Clock = utils.GetCurrentTime
	}
	return d
}

// transitioned runs the side effects of a persisted status change.
func (d Deps) transitioned(ctx context.Context, evt dto.DownloadStatusEvent) {
	d.Cache.Invalidate(ctx, evt.DownloadID)
	d.Metrics.Transition(evt.Status)
	_ = d.Events.Publish(ctx, evt)
}

func (d Deps) statusEvent(id, userID string, status model.DownloadStatus) dto.DownloadStatusEvent {
	return dto.DownloadStatusEvent{
		Type:       events.TypeDownloadStatus,
		DownloadID: id,
		UserID:     userID,
		Status:     string(status),
		OccurredAt: d.Clock(),
	}
}
