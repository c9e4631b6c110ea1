package repository

import (
	"context"
	"time"

	"downloader/domain/model"
)

// IDownload is the persistence port for Download records. Every Mark* method is a
// single per-document atomic update guarded by the expected current status, and
// returns model.ErrNotFound when no record matched.
type IDownload interface {
	Create(ctx context.Context, d *model.Download) error
	GetByID(ctx context.Context, id string) (*model.Download, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*model.Download, error)
	// ListByUser returns the user's records newest first, at most limit of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Download, error)

	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, result model.DownloadResult) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	MarkExpired(ctx context.Context, id string) error

	FindExpiredCompleted(ctx context.Context, now time.Time) ([]*model.Download, error)
	FindFailedCreatedBefore(ctx context.Context, before time.Time) ([]*model.Download, error)
	FindByStatus(ctx context.Context, status model.DownloadStatus) ([]*model.Download, error)
	// FindStaleProcessing returns processing records last updated before the cutoff.
	FindStaleProcessing(ctx context.Context, before time.Time) ([]*model.Download, error)

	Delete(ctx context.Context, id string) error
}

// IUser is the credential store, upserted by the provider's external id.
type IUser interface {
	UpsertByGoogleID(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	FindTokenExpiredBefore(ctx context.Context, now time.Time) ([]*model.User, error)
	UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error
}
