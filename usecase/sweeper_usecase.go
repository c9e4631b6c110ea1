package usecase

import (
	"context"
	"errors"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/clients/google"
	"downloader/infrastructure/logger"
)

// SweepReport summarizes one pass. Matched counts the records selected,
// Processed those fully handled and Failed those left for the next pass.
type SweepReport struct {
	Job       string `json:"job"`
	Matched   int    `json:"matched"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

const (
	JobExpiry        = "expiry"
	JobFailedCleanup = "failed_cleanup"
	JobTokenRefresh  = "token_refresh"
	JobRecovery      = "recovery"
)

// ISweeperUsecase holds the recurring maintenance passes. Every pass isolates
// per-record failures and is safe to re-run.
type ISweeperUsecase interface {
	ExpirePass(ctx context.Context) (SweepReport, error)
	CleanupFailed(ctx context.Context) (SweepReport, error)
	RefreshTokens(ctx context.Context) (SweepReport, error)
	RecoverOrphans(ctx context.Context) (SweepReport, error)
}

type sweeperUsecase struct {
	deps        Deps
	failedGrace time.Duration
	staleAfter  time.Duration
}

// NewSweeperUsecase builds the maintenance passes. staleAfter is how long a record
// may sit in processing before recovery treats its worker as gone; it should not be
// shorter than the extraction timeout.
func NewSweeperUsecase(deps Deps, failedGrace, staleAfter time.Duration) ISweeperUsecase {
	if failedGrace <= 0 {
		failedGrace = time.Hour
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &sweeperUsecase{deps: deps.withDefaults(), failedGrace: failedGrace, staleAfter: staleAfter}
}

func (u *sweeperUsecase) finish(r SweepReport) SweepReport {
	u.deps.Metrics.Sweep(r.Job, r.Matched, r.Processed, r.Failed)
	logger.GetLogger().WithFields(map[string]interface{}{
		"job":       r.Job,
		"matched":   r.Matched,
		"processed": r.Processed,
		"failed":    r.Failed,
	}).Info("Sweep finished")
	return r
}

// ExpirePass deletes the files of completed records past expiresAt and marks them
// expired. A record whose file cannot be removed stays completed for the next pass.
func (u *sweeperUsecase) ExpirePass(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Job: JobExpiry}
	now := u.deps.Clock()
	list, err := u.deps.Downloads.FindExpiredCompleted(ctx, now)
	if err != nil {
		return report, err
	}
	report.Matched = len(list)

	for _, d := range list {
		log := logger.GetLogger().WithField("download_id", d.ID)
		if err := u.deps.Store.Remove(d.FileName); err != nil {
			log.WithField("error", err).Error("Failed to delete expired file")
			report.Failed++
			continue
		}
		if err := u.deps.Downloads.MarkExpired(ctx, d.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			log.WithField("error", err).Error("Failed to mark download expired")
			report.Failed++
			continue
		}
		report.Processed++
		u.deps.transitioned(ctx, u.deps.statusEvent(d.ID, d.UserID, model.StatusExpired))
	}
	return u.finish(report), nil
}

// CleanupFailed hard-deletes failed records older than the grace period.
func (u *sweeperUsecase) CleanupFailed(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Job: JobFailedCleanup}
	before := u.deps.Clock().Add(-u.failedGrace)
	list, err := u.deps.Downloads.FindFailedCreatedBefore(ctx, before)
	if err != nil {
		return report, err
	}
	report.Matched = len(list)

	for _, d := range list {
		log := logger.GetLogger().WithField("download_id", d.ID)
		if err := u.deps.Store.Remove(d.FileName); err != nil {
			log.WithField("error", err).Error("Failed to delete file of failed download")
			report.Failed++
			continue
		}
		if err := u.deps.Downloads.Delete(ctx, d.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			log.WithField("error", err).Error("Failed to delete failed download")
			report.Failed++
			continue
		}
		u.deps.Cache.Invalidate(ctx, d.ID)
		report.Processed++
	}
	return u.finish(report), nil
}

// RefreshTokens renews access tokens that have passed their expiry.
func (u *sweeperUsecase) RefreshTokens(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Job: JobTokenRefresh}
	if u.deps.Google == nil || !u.deps.Google.Configured() || u.deps.Users == nil {
		return report, nil
	}
	now := u.deps.Clock()
	users, err := u.deps.Users.FindTokenExpiredBefore(ctx, now)
	if err != nil {
		return report, err
	}
	report.Matched = len(users)

	for _, user := range users {
		log := logger.GetLogger().WithField("user_id", user.ID)
		tok, err := u.deps.Google.Refresh(ctx, user.Tokens.RefreshToken)
		if err != nil {
			log.WithField("error", err).Warn("Failed to refresh token")
			report.Failed++
			continue
		}
		user.UpdateTokens(tok.AccessToken, tok.RefreshToken, google.ExpiresIn(tok, now), now)
		if err := u.deps.Users.UpdateTokens(ctx, user.ID, user.Tokens); err != nil {
			log.WithField("error", err).Error("Failed to store refreshed token")
			report.Failed++
			continue
		}
		report.Processed++
	}
	return u.finish(report), nil
}

// RecoverOrphans runs at startup. Records stuck in processing for longer than
// staleAfter are failed; younger ones may belong to a live sibling worker and are
// left alone. Records still pending are queued again, which is harmless for ones
// whose task still exists because MarkProcessing admits only one worker.
func (u *sweeperUsecase) RecoverOrphans(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Job: JobRecovery}

	processing, err := u.deps.Downloads.FindStaleProcessing(ctx, u.deps.Clock().Add(-u.staleAfter))
	if err != nil {
		return report, err
	}
	pending, err := u.deps.Downloads.FindByStatus(ctx, model.StatusPending)
	if err != nil {
		return report, err
	}
	report.Matched = len(processing) + len(pending)

	for _, d := range processing {
		if u.markFailed(ctx, d, msgInterrupted) {
			report.Processed++
		} else {
			report.Failed++
		}
	}

	for _, d := range pending {
		if u.deps.Queue == nil {
			logger.GetLogger().WithField("download_id", d.ID).Warn("No queue configured, pending download left as is")
			report.Failed++
			continue
		}
		task := dto.DownloadTask{DownloadID: d.ID, UserID: d.UserID, URL: d.YoutubeURL, Type: string(d.FileType), FormatID: d.FormatID}
		if err := u.deps.Queue.Enqueue(ctx, task); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"download_id": d.ID,
				"error":       err,
			}).Warn("Failed to re-enqueue pending download")
			if errors.Is(err, model.ErrQueueFull) {
				u.markFailed(ctx, d, msgQueueSaturation)
			}
			report.Failed++
			continue
		}
		report.Processed++
	}
	return u.finish(report), nil
}

func (u *sweeperUsecase) markFailed(ctx context.Context, d *model.Download, msg string) bool {
	if err := u.deps.Downloads.MarkFailed(ctx, d.ID, msg); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.GetLogger().WithFields(map[string]interface{}{
				"download_id": d.ID,
				"error":       err,
			}).Error("Failed to mark download failed")
		}
		return false
	}
	evt := u.deps.statusEvent(d.ID, d.UserID, model.StatusFailed)
	evt.Error = msg
	u.deps.transitioned(ctx, evt)
	return true
}
