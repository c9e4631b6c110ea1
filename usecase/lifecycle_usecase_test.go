package usecase_test

import (
	"context"
	"errors"
	"testing"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func videoTask() dto.DownloadTask {
	return dto.DownloadTask{DownloadID: "d1", UserID: "u1", URL: "https://youtu.be/x", Type: "video", FormatID: "22"}
}

func TestLifecycle_Process_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("MarkProcessing", ctx, "d1").Return(nil).Once()
	f.extractor.On("Extract", ctx, "https://youtu.be/x", model.TypeVideo, "22").Return(&dto.ExtractionResponse{
		Success:   true,
		Title:     "My Clip",
		Thumbnail: "https://i/t.jpg",
		Files:     []dto.ExtractedFile{{FileName: "clip.mp4", FilePath: "/elsewhere/clip.mp4", FileSize: 1572864}},
	}, nil).Once()
	f.repo.On("MarkCompleted", ctx, "d1", model.DownloadResult{
		FileName:  "clip.mp4",
		FilePath:  "/elsewhere/clip.mp4",
		FileSize:  1572864,
		Title:     "My Clip",
		Thumbnail: "https://i/t.jpg",
	}).Return(nil).Once()
	f.expectEvent(model.StatusProcessing).Once()
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(evt dto.DownloadStatusEvent) bool {
		return evt.Status == "completed" && evt.YoutubeTitle == "My Clip" && evt.UserID == "u1"
	})).Return(nil).Once()

	err := usecase.NewLifecycleUsecase(f.deps()).Process(ctx, videoTask())
	require.NoError(t, err)

	f.repo.AssertExpectations(t)
	f.extractor.AssertExpectations(t)
	f.events.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_Process_FilePathDefaultsToStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("MarkProcessing", ctx, "d1").Return(nil).Once()
	f.extractor.On("Extract", ctx, "https://youtu.be/x", model.TypeVideo, "22").Return(&dto.ExtractionResponse{
		Success: true,
		Title:   "My Clip",
		Files:   []dto.ExtractedFile{{FileName: "clip.mp4", FileSize: 10}},
	}, nil).Once()
	f.repo.On("MarkCompleted", ctx, "d1", mock.MatchedBy(func(r model.DownloadResult) bool {
		return r.FilePath == f.store.Path("clip.mp4")
	})).Return(nil).Once()
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, usecase.NewLifecycleUsecase(f.deps()).Process(ctx, videoTask()))
	f.repo.AssertExpectations(t)
}

func TestLifecycle_Process_ServiceReportsFailure(t *testing.T) {
	cases := []struct {
		name     string
		resp     *dto.ExtractionResponse
		err      error
		expected string
	}{
		{"service error text", &dto.ExtractionResponse{Success: false, Error: "Video unavailable"}, nil, "Video unavailable"},
		{"no error text", &dto.ExtractionResponse{Success: false}, nil, "Download failed"},
		{"success without files", &dto.ExtractionResponse{Success: true, Title: "t"}, nil, "no files returned"},
		{"error body", nil, &model.ExtractionFailure{Message: "yt-dlp exited with code 1"}, "yt-dlp exited with code 1"},
		{"transport", nil, errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			f.repo.On("MarkProcessing", ctx, "d1").Return(nil).Once()
			if tc.resp != nil {
				f.extractor.On("Extract", ctx, mock.Anything, model.TypeVideo, "22").Return(tc.resp, nil).Once()
			} else {
				f.extractor.On("Extract", ctx, mock.Anything, model.TypeVideo, "22").Return(nil, tc.err).Once()
			}
			f.repo.On("MarkFailed", ctx, "d1", tc.expected).Return(nil).Once()
			f.expectEvent(model.StatusProcessing).Once()
			f.events.On("Publish", mock.Anything, mock.MatchedBy(func(evt dto.DownloadStatusEvent) bool {
				return evt.Status == "failed" && evt.Error == tc.expected
			})).Return(nil).Once()

			require.NoError(t, usecase.NewLifecycleUsecase(f.deps()).Process(ctx, videoTask()))
			f.repo.AssertExpectations(t)
			f.events.AssertExpectations(t)
			f.repo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLifecycle_Process_SkipsWhenNotPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("MarkProcessing", ctx, "d1").Return(&model.NotFoundError{ID: "d1"}).Once()

	require.NoError(t, usecase.NewLifecycleUsecase(f.deps()).Process(ctx, videoTask()))
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_Process_PersistenceErrorIsReturned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("MarkProcessing", ctx, "d1").Return(errors.New("connection reset")).Once()

	err := usecase.NewLifecycleUsecase(f.deps()).Process(ctx, videoTask())
	assert.EqualError(t, err, "connection reset")
}

func TestLifecycle_Process_InvalidTypeFailsWithoutCallingOut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := videoTask()
	task.Type = "podcast"

	f.repo.On("MarkProcessing", ctx, "d1").Return(nil).Once()
	f.repo.On("MarkFailed", ctx, "d1", "Invalid download type").Return(nil).Once()
	f.expectEvent(model.StatusProcessing)
	f.expectEvent(model.StatusFailed)

	require.NoError(t, usecase.NewLifecycleUsecase(f.deps()).Process(ctx, task))
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestLifecycle_Process_DeletedDuringExtractionRemovesFile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.writeFile("song.mp3", "audio")

	f.repo.On("MarkProcessing", ctx, "d1").Return(nil).Once()
	f.extractor.On("Extract", ctx, mock.Anything, model.TypeAudio, "").Return(&dto.ExtractionResponse{
		Success: true, Title: "Song", Files: []dto.ExtractedFile{{FileName: "song.mp3", FileSize: 5}},
	}, nil).Once()
	f.repo.On("MarkCompleted", ctx, "d1", mock.Anything).Return(&model.NotFoundError{ID: "d1"}).Once()
	f.expectEvent(model.StatusProcessing)

	task := dto.DownloadTask{DownloadID: "d1", UserID: "u1", URL: "https://youtu.be/x", Type: "audio"}
	require.NoError(t, usecase.NewLifecycleUsecase(f.deps()).Process(ctx, task))
	assert.False(t, f.exists("song.mp3"))
}
