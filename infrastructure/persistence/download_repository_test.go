package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"downloader/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTransitionFilter_GuardsOnCurrentStatus(t *testing.T) {
	oid := bson.NewObjectID()

	filter := transitionFilter(oid, model.StatusProcessing)

	assert.Equal(t, bson.D{
		{Key: "_id", Value: oid},
		{Key: "status", Value: "processing"},
	}, filter)
}

func TestFailableFilter_OnlyNonTerminal(t *testing.T) {
	oid := bson.NewObjectID()

	filter := failableFilter(oid)

	require.Len(t, filter, 2)
	assert.Equal(t, oid, filter[0].Value)
	assert.Equal(t, "status", filter[1].Key)
	assert.Equal(t, bson.D{{Key: "$in", Value: bson.A{"pending", "processing"}}}, filter[1].Value)
}

func TestStaleProcessingFilter(t *testing.T) {
	cutoff := time.Date(2026, 3, 10, 11, 50, 0, 0, time.UTC)

	filter := staleProcessingFilter(cutoff)

	assert.Equal(t, bson.D{
		{Key: "status", Value: "processing"},
		{Key: "updatedAt", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	}, filter)
}

func TestDownloadRepository_InvalidIDIsNotFound(t *testing.T) {
	repo := &DownloadRepository{}
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"mark processing", func() error { return repo.MarkProcessing(ctx, "not-an-object-id") }},
		{"mark failed", func() error { return repo.MarkFailed(ctx, "not-an-object-id", "boom") }},
		{"mark expired", func() error { return repo.MarkExpired(ctx, "not-an-object-id") }},
		{"delete", func() error { return repo.Delete(ctx, "not-an-object-id") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, errors.Is(err, model.ErrNotFound))
		})
	}
}

func TestDownloadDocument_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d := model.NewPendingDownload("u1", "https://youtu.be/x", model.TypeVideo, "22", now, 24*time.Hour)

	doc := newDownloadDocument(d)
	doc.ID = bson.NewObjectID()
	got := doc.toModel()

	assert.Equal(t, doc.ID.Hex(), got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, model.TypeVideo, got.FileType)
	assert.Equal(t, "22", got.FormatID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(24*time.Hour)))
}
