package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"downloader/domain/model"
	"downloader/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// IDownloadCache is a read-through cache for single download lookups.
// Failures never surface to callers; a broken cache behaves like a miss.
//
// Invalidate leaves a tombstone for one TTL and Set only writes absent keys, so a
// reader that loaded a record before a transition cannot put the old copy back.
type IDownloadCache interface {
	Get(ctx context.Context, id string) (*model.Download, bool)
	Set(ctx context.Context, d *model.Download)
	Invalidate(ctx context.Context, id string)
}

type DownloadCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDownloadCache(client *redis.Client, ttl time.Duration) IDownloadCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DownloadCache{client: client, ttl: ttl}
}

const tombstone = "-"

func downloadKey(id string) string {
	return fmt.Sprintf("download:%s", id)
}

func (c *DownloadCache) Get(ctx context.Context, id string) (*model.Download, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, downloadKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.GetLogger().WithFields(map[string]interface{}{
				"error":       err,
				"download_id": id,
			}).Warn("download cache read failed")
		}
		return nil, false
	}
	if string(raw) == tombstone {
		return nil, false
	}
	var d model.Download
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	return &d, true
}

func (c *DownloadCache) Set(ctx context.Context, d *model.Download) {
	if c.client == nil || d == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := c.client.SetNX(ctx, downloadKey(d.ID), raw, c.ttl).Err(); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":       err,
			"download_id": d.ID,
		}).Warn("download cache write failed")
	}
}

func (c *DownloadCache) Invalidate(ctx context.Context, id string) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, downloadKey(id), tombstone, c.ttl).Err(); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":       err,
			"download_id": id,
		}).Warn("download cache invalidate failed")
	}
}
