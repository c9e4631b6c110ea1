package usecase

import (
	"context"
	"errors"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/logger"
)

const (
	msgDownloadFailed  = "Download failed"
	msgNoFiles         = "no files returned"
	msgInvalidType     = "Invalid download type"
	msgInterrupted     = "download interrupted before completion"
	msgQueueSaturation = "download queue is full"
)

// ILifecycleUsecase drives one record from pending to a terminal state.
type ILifecycleUsecase interface {
	Process(ctx context.Context, task dto.DownloadTask) error
}

type lifecycleUsecase struct {
	deps Deps
}

func NewLifecycleUsecase(deps Deps) ILifecycleUsecase {
	return &lifecycleUsecase{deps: deps.withDefaults()}
}

// Process makes exactly one extraction call. Extraction problems end in a failed
// record and a nil error; only persistence problems are returned.
func (u *lifecycleUsecase) Process(ctx context.Context, task dto.DownloadTask) error {
	log := logger.GetLogger().WithField("download_id", task.DownloadID)

	if err := u.deps.Downloads.MarkProcessing(ctx, task.DownloadID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			log.Info("download no longer pending, skipping")
			return nil
		}
		return err
	}
	u.deps.transitioned(ctx, u.deps.statusEvent(task.DownloadID, task.UserID, model.StatusProcessing))

	u.deps.Metrics.InFlight(1)
	defer u.deps.Metrics.InFlight(-1)

	fileType := model.DownloadType(task.Type)
	if !fileType.Valid() {
		return u.fail(ctx, task, msgInvalidType)
	}

	start := time.Now()
	resp, err := u.deps.Extractor.Extract(ctx, task.URL, fileType, task.FormatID)
	u.deps.Metrics.ExtractionDuration(task.Type, time.Since(start))
	if err != nil {
		msg := err.Error()
		var ef *model.ExtractionFailure
		if errors.As(err, &ef) && ef.Message != "" {
			msg = ef.Message
		}
		return u.fail(ctx, task, msg)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = msgDownloadFailed
		}
		return u.fail(ctx, task, msg)
	}
	if len(resp.Files) == 0 {
		return u.fail(ctx, task, msgNoFiles)
	}

	// filePath records where the service wrote the file; reads and removals
	// always go through the store by file name
	file := resp.Files[0]
	filePath := file.FilePath
	if filePath == "" {
		filePath = u.deps.Store.Path(file.FileName)
	}
	result := model.DownloadResult{
		FileName:  file.FileName,
		FilePath:  filePath,
		FileSize:  file.FileSize,
		Title:     resp.Title,
		Thumbnail: resp.Thumbnail,
	}
	if err := u.deps.Downloads.MarkCompleted(ctx, task.DownloadID, result); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// deleted while extracting; the produced file has no owner
			if rmErr := u.deps.Store.Remove(file.FileName); rmErr != nil {
				log.WithField("error", rmErr).Warn("failed to remove orphaned file")
			}
			log.Info("download removed during extraction")
			return nil
		}
		return err
	}

	evt := u.deps.statusEvent(task.DownloadID, task.UserID, model.StatusCompleted)
	evt.YoutubeTitle = resp.Title
	u.deps.transitioned(ctx, evt)
	u.deps.Metrics.FileSize(task.Type, file.FileSize)

	log.WithField("file_name", file.FileName).Info("Download completed")
	return nil
}

func (u *lifecycleUsecase) fail(ctx context.Context, task dto.DownloadTask, msg string) error {
	logger.GetLogger().WithFields(map[string]interface{}{
		"download_id": task.DownloadID,
		"error":       msg,
	}).Warn("Download failed")

	if err := u.deps.Downloads.MarkFailed(ctx, task.DownloadID, msg); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	evt := u.deps.statusEvent(task.DownloadID, task.UserID, model.StatusFailed)
	evt.Error = msg
	u.deps.transitioned(ctx, evt)
	return nil
}
