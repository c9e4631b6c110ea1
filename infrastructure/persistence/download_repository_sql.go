package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"downloader/domain/model"
	"downloader/domain/repository"
	"downloader/infrastructure/logger"

	"github.com/google/uuid"
)

const downloadColumns = `id, user_id, file_name, original_file_name, file_type, format_id, file_path, file_size, youtube_url, youtube_title, youtube_thumbnail, status, error_message, expires_at, downloaded_at, created_at, updated_at`

// DownloadRepositorySQL implements IDownload on database/sql for Postgres or SQL Server.
type DownloadRepositorySQL struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewDownloadRepositorySQL(db *sql.DB, dialect Dialect) repository.IDownload {
	return &DownloadRepositorySQL{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*model.Download, error) {
	var (
		d        model.Download
		fileType string
		status   string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.FileName, &d.OriginalFileName, &fileType, &d.FormatID, &d.FilePath, &d.FileSize,
		&d.YoutubeURL, &d.YoutubeTitle, &d.YoutubeThumbnail, &status, &d.Error, &d.ExpiresAt, &d.DownloadedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.FileType = model.DownloadType(fileType)
	d.Status = model.DownloadStatus(status)
	return &d, nil
}

func (r *DownloadRepositorySQL) Create(ctx context.Context, d *model.Download) error {
	id := uuid.NewString()
	q := r.dialect.rebind(`INSERT INTO {downloads} (` + downloadColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`)
	_, err := r.db.ExecContext(ctx, q, id, d.UserID, d.FileName, d.OriginalFileName, string(d.FileType), d.FormatID, d.FilePath, d.FileSize,
		d.YoutubeURL, d.YoutubeTitle, d.YoutubeThumbnail, string(d.Status), d.Error, d.ExpiresAt, d.DownloadedAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":   err,
			"dialect": r.dialect.Name,
		}).Error("sql: insert download failed")
		return fmt.Errorf("insert download: %w", err)
	}
	d.ID = id
	return nil
}

func (r *DownloadRepositorySQL) GetByID(ctx context.Context, id string) (*model.Download, error) {
	q := r.dialect.rebind(`SELECT ` + downloadColumns + ` FROM {downloads} WHERE id = $1`)
	return r.queryOne(ctx, id, q, id)
}

func (r *DownloadRepositorySQL) GetByIDForUser(ctx context.Context, id, userID string) (*model.Download, error) {
	q := r.dialect.rebind(`SELECT ` + downloadColumns + ` FROM {downloads} WHERE id = $1 AND user_id = $2`)
	return r.queryOne(ctx, id, q, id, userID)
}

func (r *DownloadRepositorySQL) queryOne(ctx context.Context, id, q string, args ...any) (*model.Download, error) {
	d, err := scanDownload(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("query download %s: %w", id, err)
	}
	return d, nil
}

func (r *DownloadRepositorySQL) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Download, error) {
	var q string
	if r.dialect.Name == MSSQL.Name {
		q = `SELECT TOP ($2) ` + downloadColumns + ` FROM {downloads} WHERE user_id = $1 ORDER BY created_at DESC`
	} else {
		q = `SELECT ` + downloadColumns + ` FROM {downloads} WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	}
	return r.queryMany(ctx, r.dialect.rebind(q), userID, limit)
}

func (r *DownloadRepositorySQL) queryMany(ctx context.Context, q string, args ...any) ([]*model.Download, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	list := make([]*model.Download, 0)
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *DownloadRepositorySQL) MarkProcessing(ctx context.Context, id string) error {
	q := `UPDATE {downloads} SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	return r.exec(ctx, id, q, string(model.StatusProcessing), r.now(), id, string(model.StatusPending))
}

func (r *DownloadRepositorySQL) MarkCompleted(ctx context.Context, id string, result model.DownloadResult) error {
	q := `UPDATE {downloads} SET status = $1, file_name = $2, original_file_name = $3, file_path = $4, file_size = $5,
		youtube_title = $6, youtube_thumbnail = $7, updated_at = $8
		WHERE id = $9 AND status = $10`
	return r.exec(ctx, id, q, string(model.StatusCompleted), result.FileName, result.Title, result.FilePath, result.FileSize,
		result.Title, result.Thumbnail, r.now(), id, string(model.StatusProcessing))
}

func (r *DownloadRepositorySQL) MarkFailed(ctx context.Context, id string, errMsg string) error {
	q := `UPDATE {downloads} SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4 AND status IN ($5, $6)`
	return r.exec(ctx, id, q, string(model.StatusFailed), errMsg, r.now(), id, string(model.StatusPending), string(model.StatusProcessing))
}

func (r *DownloadRepositorySQL) MarkExpired(ctx context.Context, id string) error {
	q := `UPDATE {downloads} SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	return r.exec(ctx, id, q, string(model.StatusExpired), r.now(), id, string(model.StatusCompleted))
}

func (r *DownloadRepositorySQL) exec(ctx context.Context, id, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(q), args...)
	if err != nil {
		return fmt.Errorf("update download %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update download %s: %w", id, err)
	}
	if n == 0 {
		return &model.NotFoundError{ID: id}
	}
	return nil
}

func (r *DownloadRepositorySQL) FindExpiredCompleted(ctx context.Context, now time.Time) ([]*model.Download, error) {
	q := r.dialect.rebind(`SELECT ` + downloadColumns + ` FROM {downloads} WHERE status = $1 AND expires_at < $2`)
	return r.queryMany(ctx, q, string(model.StatusCompleted), now)
}

func (r *DownloadRepositorySQL) FindFailedCreatedBefore(ctx context.Context, before time.Time) ([]*model.Download, error) {
	q := r.dialect.rebind(`SELECT ` + downloadColumns + ` FROM {downloads} WHERE status = $1 AND created_at < $2`)
	return r.queryMany(ctx, q, string(model.StatusFailed), before)
}

func (r *DownloadRepositorySQL) FindByStatus(ctx context.Context, status model.DownloadStatus) ([]*model.Download, error) {
	q := r.dialect.rebind(`SELECT ` + downloadColumns + ` FROM {downloads} WHERE status = $1`)
	return r.queryMany(ctx, q, string(status))
}

func (r *DownloadRepositorySQL) FindStaleProcessing(ctx context.Context, before time.Time) ([]*model.Download, error) {
	q := r.dialect.rebind(`SELECT ` + downloadColumns + ` FROM {downloads} WHERE status = $1 AND updated_at < $2`)
	return r.queryMany(ctx, q, string(model.StatusProcessing), before)
}

func (r *DownloadRepositorySQL) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, id, `DELETE FROM {downloads} WHERE id = $1`, id)
}
