package events

import (
	"context"
	"encoding/json"
	"time"

	"downloader/domain/dto"
	"downloader/infrastructure/logger"
)

const TypeDownloadStatus = "download_status"

// IPublisher delivers a status event to one downstream channel.
type IPublisher interface {
	Publish(ctx context.Context, evt dto.DownloadStatusEvent) error
}

// Fanout forwards each event to every publisher. Delivery is best effort:
// a failing publisher is logged and never affects the others or the caller.
type Fanout struct {
	publishers []IPublisher
	timeout    time.Duration
}

func NewFanout(publishers ...IPublisher) *Fanout {
	f := &Fanout{timeout: 5 * time.Second}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

func (f *Fanout) Add(p IPublisher) {
	if p != nil {
		f.publishers = append(f.publishers, p)
	}
}

func (f *Fanout) Publish(ctx context.Context, evt dto.DownloadStatusEvent) error {
	for _, p := range f.publishers {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		if err := p.Publish(pctx, evt); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"error":       err,
				"download_id": evt.DownloadID,
				"status":      evt.Status,
			}).Warn("status event publish failed")
		}
		cancel()
	}
	return nil
}

// Encode is the wire form shared by the message-bus publishers.
func Encode(evt dto.DownloadStatusEvent) ([]byte, map[string]string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{
		"type":        evt.Type,
		"status":      evt.Status,
		"user_id":     evt.UserID,
		"download_id": evt.DownloadID,
	}
	return payload, attrs, nil
}
