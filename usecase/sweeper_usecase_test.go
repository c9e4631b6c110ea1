package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const staleAfter = 10 * time.Minute

func TestSweeper_ExpirePass(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.writeFile("a.mp4", "a")
	f.writeFile("b.mp4", "b")

	list := []*model.Download{
		{ID: "d1", UserID: "u1", FileName: "a.mp4", Status: model.StatusCompleted},
		{ID: "d2", UserID: "u1", FileName: "b.mp4", Status: model.StatusCompleted},
		{ID: "d3", UserID: "u2", FileName: "gone.mp4", Status: model.StatusCompleted},
	}
	f.repo.On("FindExpiredCompleted", ctx, fixedNow).Return(list, nil).Once()
	f.repo.On("MarkExpired", ctx, "d1").Return(nil).Once()
	f.repo.On("MarkExpired", ctx, "d2").Return(errors.New("write conflict")).Once()
	f.repo.On("MarkExpired", ctx, "d3").Return(nil).Once()
	f.expectEvent(model.StatusExpired).Twice()

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).ExpirePass(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepReport{Job: usecase.JobExpiry, Matched: 3, Processed: 2, Failed: 1}, report)
	assert.False(t, f.exists("a.mp4"))
	assert.False(t, f.exists("b.mp4"))
	f.repo.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestSweeper_ExpirePass_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("FindExpiredCompleted", ctx, fixedNow).Return([]*model.Download{}, nil).Once()

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).ExpirePass(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Matched)
	f.repo.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything)
}

func TestSweeper_ExpirePass_ConcurrentDeleteIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("FindExpiredCompleted", ctx, fixedNow).Return([]*model.Download{{ID: "d1", FileName: "x"}}, nil).Once()
	f.repo.On("MarkExpired", ctx, "d1").Return(&model.NotFoundError{ID: "d1"}).Once()

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).ExpirePass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Processed)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSweeper_ExpirePass_QueryError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("FindExpiredCompleted", ctx, fixedNow).Return(nil, errors.New("db down")).Once()

	_, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).ExpirePass(ctx)
	assert.EqualError(t, err, "db down")
}

func TestSweeper_CleanupFailed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("FindFailedCreatedBefore", ctx, fixedNow.Add(-2*time.Hour)).Return([]*model.Download{
		{ID: "d1", FileName: "download-1", Status: model.StatusFailed},
		{ID: "d2", FileName: "download-2", Status: model.StatusFailed},
	}, nil).Once()
	f.repo.On("Delete", ctx, "d1").Return(nil).Once()
	f.repo.On("Delete", ctx, "d2").Return(errors.New("timeout")).Once()

	report, err := usecase.NewSweeperUsecase(f.deps(), 2*time.Hour, staleAfter).CleanupFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepReport{Job: usecase.JobFailedCleanup, Matched: 2, Processed: 1, Failed: 1}, report)
	f.repo.AssertExpectations(t)
}

func TestSweeper_RefreshTokens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	users := []*model.User{
		{ID: "u1", Tokens: model.TokenBundle{AccessToken: "old", RefreshToken: "r1"}},
		{ID: "u2", Tokens: model.TokenBundle{AccessToken: "old", RefreshToken: "revoked"}},
	}
	f.google.On("Configured").Return(true)
	f.users.On("FindTokenExpiredBefore", ctx, fixedNow).Return(users, nil).Once()
	f.google.On("Refresh", ctx, "r1").Return(&oauth2.Token{AccessToken: "new", Expiry: fixedNow.Add(30 * time.Minute)}, nil).Once()
	f.google.On("Refresh", ctx, "revoked").Return(nil, errors.New("invalid_grant")).Once()
	f.users.On("UpdateTokens", ctx, "u1", model.TokenBundle{
		AccessToken:  "new",
		RefreshToken: "r1",
		ExpiresIn:    1800,
		TokenExpiry:  fixedNow.Add(30 * time.Minute),
	}).Return(nil).Once()

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).RefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepReport{Job: usecase.JobTokenRefresh, Matched: 2, Processed: 1, Failed: 1}, report)
	f.users.AssertExpectations(t)
	f.google.AssertExpectations(t)
}

func TestSweeper_RefreshTokens_NotConfigured(t *testing.T) {
	f := newFixture()
	f.google.On("Configured").Return(false)

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).RefreshTokens(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Matched)
	f.users.AssertNotCalled(t, "FindTokenExpiredBefore", mock.Anything, mock.Anything)
}

func TestSweeper_RecoverOrphans(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("FindStaleProcessing", ctx, fixedNow.Add(-staleAfter)).Return([]*model.Download{
		{ID: "p1", UserID: "u1", Status: model.StatusProcessing},
	}, nil).Once()
	f.repo.On("FindByStatus", ctx, model.StatusPending).Return([]*model.Download{
		{ID: "q1", UserID: "u1", YoutubeURL: "https://youtu.be/a", FileType: model.TypeVideo, FormatID: "22"},
		{ID: "q2", UserID: "u2", YoutubeURL: "https://youtu.be/b", FileType: model.TypeReel},
	}, nil).Once()
	f.repo.On("MarkFailed", ctx, "p1", "download interrupted before completion").Return(nil).Once()
	f.queue.On("Enqueue", ctx, dto.DownloadTask{DownloadID: "q1", UserID: "u1", URL: "https://youtu.be/a", Type: "video", FormatID: "22"}).Return(nil).Once()
	f.queue.On("Enqueue", ctx, dto.DownloadTask{DownloadID: "q2", UserID: "u2", URL: "https://youtu.be/b", Type: "reel"}).Return(model.ErrQueueFull).Once()
	f.repo.On("MarkFailed", ctx, "q2", "download queue is full").Return(nil).Once()
	f.expectEvent(model.StatusFailed).Twice()

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, staleAfter).RecoverOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepReport{Job: usecase.JobRecovery, Matched: 3, Processed: 2, Failed: 1}, report)
	f.repo.AssertExpectations(t)
	f.queue.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestSweeper_RecoverOrphans_LeavesFreshProcessingAlone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// a sibling worker picked this up two minutes ago; the cutoff query excludes it
	f.repo.On("FindStaleProcessing", ctx, fixedNow.Add(-time.Hour)).Return([]*model.Download{}, nil).Once()
	f.repo.On("FindByStatus", ctx, model.StatusPending).Return([]*model.Download{}, nil).Once()

	report, err := usecase.NewSweeperUsecase(f.deps(), time.Hour, time.Hour).RecoverOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepReport{Job: usecase.JobRecovery}, report)
	f.repo.AssertNotCalled(t, "FindByStatus", ctx, model.StatusProcessing)
	f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestSweeper_RecoverOrphans_WithoutQueueKeepsPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("FindStaleProcessing", ctx, fixedNow.Add(-staleAfter)).Return([]*model.Download{}, nil).Once()
	f.repo.On("FindByStatus", ctx, model.StatusPending).Return([]*model.Download{
		{ID: "q1", UserID: "u1", YoutubeURL: "https://youtu.be/a", FileType: model.TypeAudio},
	}, nil).Once()

	deps := f.deps()
	deps.Queue = nil
	report, err := usecase.NewSweeperUsecase(deps, time.Hour, staleAfter).RecoverOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepReport{Job: usecase.JobRecovery, Matched: 1, Failed: 1}, report)
	f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}
