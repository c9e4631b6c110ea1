package model

import (
	"fmt"
	"math"
	"time"
)

type DownloadStatus string

const (
	StatusPending    DownloadStatus = "pending"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusExpired    DownloadStatus = "expired"
)

// IsTerminal reports whether no further lifecycle-driven transition happens from s.
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

func (s DownloadStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

type DownloadType string

const (
	TypeVideo DownloadType = "video"
	TypeAudio DownloadType = "audio"
	TypeShort DownloadType = "short"
	TypeReel  DownloadType = "reel"
)

func (t DownloadType) Valid() bool {
	switch t {
	case TypeVideo, TypeAudio, TypeShort, TypeReel:
		return true
	}
	return false
}

// Download tracks one media-fetch request from submission to a terminal state.
type Download struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	FileName         string         `json:"fileName"`
	OriginalFileName string         `json:"originalFileName"`
	FileType         DownloadType   `json:"fileType"`
	FormatID         string         `json:"formatId,omitempty"`
	FilePath         string         `json:"filePath"`
	FileSize         int64          `json:"fileSize"`
	YoutubeURL       string         `json:"youtubeUrl"`
	YoutubeTitle     string         `json:"youtubeTitle,omitempty"`
	YoutubeThumbnail string         `json:"youtubeThumbnail,omitempty"`
	Status           DownloadStatus `json:"status"`
	Error            string         `json:"error,omitempty"`
	ExpiresAt        time.Time      `json:"expiresAt"`
	DownloadedAt     time.Time      `json:"downloadedAt"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// NewPendingDownload builds the record persisted when a download is requested.
func NewPendingDownload(userID, url string, fileType DownloadType, formatID string, now time.Time, retention time.Duration) *Download {
	return &Download{
		UserID:           userID,
		FileName:         fmt.Sprintf("download-%d", now.UnixMilli()),
		OriginalFileName: "pending",
		FileType:         fileType,
		FormatID:         formatID,
		YoutubeURL:       url,
		Status:           StatusPending,
		ExpiresAt:        now.Add(retention),
		DownloadedAt:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (d *Download) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// FileSizeFormatted renders the size the way the dashboard shows it, e.g. "1.5 MB".
func (d *Download) FileSizeFormatted() string {
	return FormatFileSize(d.FileSize)
}

func FormatFileSize(size int64) string {
	if size <= 0 {
		return "Unknown"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(float64(size)/math.Pow(1024, float64(i))*100) / 100
	return fmt.Sprintf("%s %s", trimFloat(v), sizes[i])
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// DownloadResult is the file metadata copied in on the transition into completed.
type DownloadResult struct {
	FileName  string
	FilePath  string
	FileSize  int64
	Title     string
	Thumbnail string
}
