package dto

import "time"

// DownloadStatusEvent is pushed to SSE subscribers and the message buses on every
// persisted status transition.
type DownloadStatusEvent struct {
	Type         string    `json:"type"`
	DownloadID   string    `json:"download_id"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"`
	YoutubeTitle string    `json:"youtube_title,omitempty"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
