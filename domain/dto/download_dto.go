package dto

import (
	"time"

	"downloader/domain/model"
)

// Res is the generic error envelope returned by the auth middleware.
type Res struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}

// CreateDownloadRequest is the body of POST /api/download.
type CreateDownloadRequest struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	FormatID string `json:"format_id"`
}

type CreateDownloadResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DownloadResponse is the record projection shown on the dashboard.
type DownloadResponse struct {
	ID               string    `json:"id"`
	FileName         string    `json:"fileName"`
	OriginalFileName string    `json:"originalFileName"`
	FileType         string    `json:"fileType"`
	FileSize         string    `json:"fileSize"`
	YoutubeURL       string    `json:"youtubeUrl"`
	YoutubeTitle     string    `json:"youtubeTitle,omitempty"`
	YoutubeThumbnail string    `json:"youtubeThumbnail,omitempty"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
	DownloadedAt     time.Time `json:"downloadedAt"`
	IsExpired        bool      `json:"isExpired"`
}

func NewDownloadResponse(d *model.Download, now time.Time) DownloadResponse {
	return DownloadResponse{
		ID:               d.ID,
		FileName:         d.FileName,
		OriginalFileName: d.OriginalFileName,
		FileType:         string(d.FileType),
		FileSize:         d.FileSizeFormatted(),
		YoutubeURL:       d.YoutubeURL,
		YoutubeTitle:     d.YoutubeTitle,
		YoutubeThumbnail: d.YoutubeThumbnail,
		Status:           string(d.Status),
		Error:            d.Error,
		ExpiresAt:        d.ExpiresAt,
		DownloadedAt:     d.DownloadedAt,
		IsExpired:        d.IsExpired(now),
	}
}

type FormatsRequest struct {
	URL string `json:"url"`
}

type UserProfile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewUserProfile(u *model.User) UserProfile {
	return UserProfile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// DownloadTask is the unit of work handed from the API to a lifecycle worker.
type DownloadTask struct {
	DownloadID string `json:"download_id"`
	UserID     string `json:"user_id"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	FormatID   string `json:"format_id,omitempty"`
}
