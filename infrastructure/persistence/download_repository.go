package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"downloader/domain/model"
	"downloader/domain/repository"
	"downloader/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DownloadRepository persists Download records in the MongoDB downloads collection.
type DownloadRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewDownloadRepository(db *mongo.Database) repository.IDownload {
	return &DownloadRepository{collection: db.Collection(downloadsCollection), now: func() time.Time { return time.Now().UTC() }}
}

func (r *DownloadRepository) Create(ctx context.Context, d *model.Download) error {
	doc := newDownloadDocument(d)
	doc.ID = bson.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	d.ID = doc.ID.Hex()
	return nil
}

func (r *DownloadRepository) GetByID(ctx context.Context, id string) (*model.Download, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, &model.NotFoundError{ID: id}
	}
	return r.findOne(ctx, id, bson.D{{Key: "_id", Value: oid}})
}

func (r *DownloadRepository) GetByIDForUser(ctx context.Context, id, userID string) (*model.Download, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, &model.NotFoundError{ID: id}
	}
	return r.findOne(ctx, id, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: userID}})
}

func (r *DownloadRepository) findOne(ctx context.Context, id string, filter bson.D) (*model.Download, error) {
	var doc downloadDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &model.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("find download %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (r *DownloadRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Download, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
}

func (r *DownloadRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.StatusPending, bson.D{
		{Key: "status", Value: string(model.StatusProcessing)},
	})
}

func (r *DownloadRepository) MarkCompleted(ctx context.Context, id string, result model.DownloadResult) error {
	return r.transition(ctx, id, model.StatusProcessing, bson.D{
		{Key: "status", Value: string(model.StatusCompleted)},
		{Key: "fileName", Value: result.FileName},
		{Key: "originalFileName", Value: result.Title},
		{Key: "filePath", Value: result.FilePath},
		{Key: "fileSize", Value: result.FileSize},
		{Key: "youtubeTitle", Value: result.Title},
		{Key: "youtubeThumbnail", Value: result.Thumbnail},
	})
}

func (r *DownloadRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return &model.NotFoundError{ID: id}
	}
	return r.update(ctx, id, failableFilter(oid), bson.D{
		{Key: "status", Value: string(model.StatusFailed)},
		{Key: "error", Value: errMsg},
	})
}

func (r *DownloadRepository) MarkExpired(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.StatusCompleted, bson.D{
		{Key: "status", Value: string(model.StatusExpired)},
	})
}

func (r *DownloadRepository) transition(ctx context.Context, id string, from model.DownloadStatus, set bson.D) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return &model.NotFoundError{ID: id}
	}
	return r.update(ctx, id, transitionFilter(oid, from), set)
}

// transitionFilter matches the record only while it is still in status from.
func transitionFilter(oid bson.ObjectID, from model.DownloadStatus) bson.D {
	return bson.D{{Key: "_id", Value: oid}, {Key: "status", Value: string(from)}}
}

// failableFilter matches the record while it has not reached a terminal status.
func failableFilter(oid bson.ObjectID) bson.D {
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{string(model.StatusPending), string(model.StatusProcessing)}}}},
	}
}

func staleProcessingFilter(before time.Time) bson.D {
	return bson.D{
		{Key: "status", Value: string(model.StatusProcessing)},
		{Key: "updatedAt", Value: bson.D{{Key: "$lt", Value: before}}},
	}
}

func (r *DownloadRepository) update(ctx context.Context, id string, filter, set bson.D) error {
	set = append(set, bson.E{Key: "updatedAt", Value: r.now()})
	res, err := r.collection.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("update download %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return &model.NotFoundError{ID: id}
	}
	return nil
}

func (r *DownloadRepository) FindExpiredCompleted(ctx context.Context, now time.Time) ([]*model.Download, error) {
	return r.find(ctx, bson.D{
		{Key: "status", Value: string(model.StatusCompleted)},
		{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: now}}},
	}, nil)
}

func (r *DownloadRepository) FindFailedCreatedBefore(ctx context.Context, before time.Time) ([]*model.Download, error) {
	return r.find(ctx, bson.D{
		{Key: "status", Value: string(model.StatusFailed)},
		{Key: "createdAt", Value: bson.D{{Key: "$lt", Value: before}}},
	}, nil)
}

func (r *DownloadRepository) FindByStatus(ctx context.Context, status model.DownloadStatus) ([]*model.Download, error) {
	return r.find(ctx, bson.D{{Key: "status", Value: string(status)}}, nil)
}

func (r *DownloadRepository) FindStaleProcessing(ctx context.Context, before time.Time) ([]*model.Download, error) {
	return r.find(ctx, staleProcessingFilter(before), nil)
}

func (r *DownloadRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]*model.Download, error) {
	var (
		cursor *mongo.Cursor
		err    error
	)
	if opts != nil {
		cursor, err = r.collection.Find(ctx, filter, opts)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("find downloads: %w", err)
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	list := make([]*model.Download, 0)
	for cursor.Next(ctx) {
		var doc downloadDocument
		if err := cursor.Decode(&doc); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding download")
			continue
		}
		list = append(list, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return list, nil
}

func (r *DownloadRepository) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return &model.NotFoundError{ID: id}
	}
	res, err := r.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete download %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return &model.NotFoundError{ID: id}
	}
	return nil
}
