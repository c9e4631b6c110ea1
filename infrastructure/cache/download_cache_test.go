package cache_test

import (
	"context"
	"testing"
	"time"

	"downloader/domain/model"
	"downloader/infrastructure/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_EmptyAddrDisablesCaching(t *testing.T) {
	client, err := cache.NewCache(context.Background(), "", "", "", 0)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestDownloadCache_NilClientIsNoop(t *testing.T) {
	c := cache.NewDownloadCache(nil, 0)
	ctx := context.Background()

	c.Set(ctx, &model.Download{ID: "d1"})
	c.Invalidate(ctx, "d1")
	d, ok := c.Get(ctx, "d1")
	assert.False(t, ok)
	assert.Nil(t, d)
}

func TestDownloadCache_UnreachableRedisBehavesLikeMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := cache.NewDownloadCache(client, time.Second)
	ctx := context.Background()

	assert.NotPanics(t, func() { c.Set(ctx, &model.Download{ID: "d1"}) })
	_, ok := c.Get(ctx, "d1")
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.Invalidate(ctx, "d1") })
}

func newRedisCache(t *testing.T, ttl time.Duration) (cache.IDownloadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewCache(context.Background(), mr.Addr(), "", "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewDownloadCache(client, ttl), mr
}

func TestDownloadCache_SetThenGet(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	expires := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	d := &model.Download{
		ID:           "d1",
		UserID:       "u1",
		FileName:     "clip.mp4",
		FileType:     model.TypeVideo,
		FileSize:     1572864,
		Status:       model.StatusCompleted,
		YoutubeTitle: "My Clip",
		ExpiresAt:    expires,
	}

	c.Set(ctx, d)

	got, ok := c.Get(ctx, "d1")
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, model.TypeVideo, got.FileType)
	assert.Equal(t, int64(1572864), got.FileSize)
	assert.True(t, got.ExpiresAt.Equal(expires))
	assert.Equal(t, time.Minute, mr.TTL("download:d1"))
}

func TestDownloadCache_EntryExpires(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Second)
	ctx := context.Background()

	c.Set(ctx, &model.Download{ID: "d1", Status: model.StatusCompleted})
	mr.FastForward(31 * time.Second)

	_, ok := c.Get(ctx, "d1")
	assert.False(t, ok)
}

func TestDownloadCache_InvalidateBlocksStaleWriteBack(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Second)
	ctx := context.Background()
	stale := &model.Download{ID: "d1", Status: model.StatusCompleted}

	c.Set(ctx, stale)
	c.Invalidate(ctx, "d1")
	_, ok := c.Get(ctx, "d1")
	assert.False(t, ok)

	// a reader that loaded the record before the transition writes it back late
	c.Set(ctx, stale)
	_, ok = c.Get(ctx, "d1")
	assert.False(t, ok)

	mr.FastForward(31 * time.Second)
	c.Set(ctx, &model.Download{ID: "d1", Status: model.StatusExpired})
	got, ok := c.Get(ctx, "d1")
	require.True(t, ok)
	assert.Equal(t, model.StatusExpired, got.Status)
}

func TestDownloadCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	require.NoError(t, mr.Set("download:d1", "{not json"))

	_, ok := c.Get(context.Background(), "d1")
	assert.False(t, ok)
}
