package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/logger"

	"github.com/spf13/afero"
)

const (
	msgURLAndTypeRequired = "URL and type are required"
	msgTypeInvalid        = "Type must be video, audio, short, or reel"
	msgFormatRequired     = "format_id is required for video downloads"
	msgURLRequired        = "URL is required"
)

// DownloadFile is an open handle on a completed download, ready to stream.
type DownloadFile struct {
	Download *model.Download
	Content  afero.File
	Size     int64
	ModTime  time.Time
}

type IDownloadUsecase interface {
	Create(ctx context.Context, userID string, req dto.CreateDownloadRequest) (*model.Download, error)
	Get(ctx context.Context, userID, id string) (*model.Download, error)
	List(ctx context.Context, userID string) ([]*model.Download, error)
	// OpenFile returns the backing file; the caller closes Content.
	OpenFile(ctx context.Context, userID, id string) (*DownloadFile, error)
	Delete(ctx context.Context, userID, id string) error
	Formats(ctx context.Context, url string) (json.RawMessage, error)
}

type downloadUsecase struct {
	deps      Deps
	retention time.Duration
	listLimit int
}

func NewDownloadUsecase(deps Deps, retention time.Duration, listLimit int) IDownloadUsecase {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if listLimit <= 0 {
		listLimit = 50
	}
	return &downloadUsecase{deps: deps.withDefaults(), retention: retention, listLimit: listLimit}
}

func validateCreate(req dto.CreateDownloadRequest) error {
	if strings.TrimSpace(req.URL) == "" || req.Type == "" {
		return model.NewValidationError(msgURLAndTypeRequired)
	}
	t := model.DownloadType(req.Type)
	if !t.Valid() {
		return model.NewValidationError(msgTypeInvalid)
	}
	if t == model.TypeVideo && req.FormatID == "" {
		return model.NewValidationError(msgFormatRequired)
	}
	return nil
}

// Create persists a pending record and hands it to the queue. When the queue is
// saturated the record is failed immediately and model.ErrQueueFull is returned.
func (u *downloadUsecase) Create(ctx context.Context, userID string, req dto.CreateDownloadRequest) (*model.Download, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	fileType := model.DownloadType(req.Type)
	formatID := req.FormatID
	if fileType != model.TypeVideo {
		formatID = ""
	}

	d := model.NewPendingDownload(userID, strings.TrimSpace(req.URL), fileType, formatID, u.deps.Clock(), u.retention)
	if err := u.deps.Downloads.Create(ctx, d); err != nil {
		return nil, err
	}
	u.deps.transitioned(ctx, u.deps.statusEvent(d.ID, userID, model.StatusPending))

	task := dto.DownloadTask{DownloadID: d.ID, UserID: userID, URL: d.YoutubeURL, Type: string(fileType), FormatID: formatID}
	if err := u.deps.Queue.Enqueue(ctx, task); err != nil {
		msg := err.Error()
		if errors.Is(err, model.ErrQueueFull) {
			msg = msgQueueSaturation
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"download_id": d.ID,
			"error":       err,
		}).Error("Failed to enqueue download")
		if mErr := u.deps.Downloads.MarkFailed(ctx, d.ID, msg); mErr == nil {
			evt := u.deps.statusEvent(d.ID, userID, model.StatusFailed)
			evt.Error = msg
			u.deps.transitioned(ctx, evt)
		}
		if errors.Is(err, model.ErrQueueFull) {
			return nil, model.ErrQueueFull
		}
		return nil, err
	}
	return d, nil
}

func (u *downloadUsecase) Get(ctx context.Context, userID, id string) (*model.Download, error) {
	if d, ok := u.deps.Cache.Get(ctx, id); ok {
		if d.UserID != userID {
			return nil, &model.NotFoundError{ID: id}
		}
		return d, nil
	}
	d, err := u.deps.Downloads.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	// in-flight records change under the reader; only settled ones are cached
	if d.Status.IsTerminal() {
		u.deps.Cache.Set(ctx, d)
	}
	return d, nil
}

func (u *downloadUsecase) List(ctx context.Context, userID string) ([]*model.Download, error) {
	return u.deps.Downloads.ListByUser(ctx, userID, u.listLimit)
}

func (u *downloadUsecase) OpenFile(ctx context.Context, userID, id string) (*DownloadFile, error) {
	d, err := u.deps.Downloads.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if d.Status == model.StatusExpired {
		return nil, &model.ExpiredResourceError{ID: id}
	}
	if d.Status != model.StatusCompleted {
		return nil, model.ErrNotCompleted
	}
	if d.IsExpired(u.deps.Clock()) {
		return nil, &model.ExpiredResourceError{ID: id}
	}

	info, err := u.deps.Store.Stat(d.FileName)
	if err != nil {
		return nil, err
	}
	f, err := u.deps.Store.Open(d.FileName)
	if err != nil {
		return nil, err
	}
	return &DownloadFile{Download: d, Content: f, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes the backing file (absence tolerated) and then the record.
func (u *downloadUsecase) Delete(ctx context.Context, userID, id string) error {
	d, err := u.deps.Downloads.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := u.deps.Store.Remove(d.FileName); err != nil {
		return err
	}
	if err := u.deps.Downloads.Delete(ctx, id); err != nil {
		return err
	}
	u.deps.Cache.Invalidate(ctx, id)
	return nil
}

func (u *downloadUsecase) Formats(ctx context.Context, url string) (json.RawMessage, error) {
	if strings.TrimSpace(url) == "" {
		return nil, model.NewValidationError(msgURLRequired)
	}
	return u.deps.Extractor.Formats(ctx, url)
}
