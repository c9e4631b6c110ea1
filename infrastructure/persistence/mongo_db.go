package persistence

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"downloader/infrastructure/configuration"
	"downloader/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	downloadsCollection = "downloads"
	usersCollection     = "users"
)

// NewMongoDb connects to MongoDB using MONGO_URI when present, otherwise host/port/credentials.
func NewMongoDb(cfg configuration.Db) (*mongo.Client, error) {
	uri := cfg.URI
	if uri == "" {
		u := &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		uri = u.String()
	}
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return client, nil
}

// EnsureMongoIndexes creates the indexes backing the per-owner listing and sweeper range queries.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	downloads := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}
	if _, err := db.Collection(downloadsCollection).Indexes().CreateMany(ctx, downloads); err != nil {
		return fmt.Errorf("creating download indexes failed: %w", err)
	}

	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tokens.tokenExpiry", Value: 1}}},
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("creating user indexes failed: %w", err)
	}
	logger.GetLogger().WithField("database", db.Name()).Info("Mongo indexes ensured")
	return nil
}
