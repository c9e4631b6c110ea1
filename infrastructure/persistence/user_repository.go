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

// UserRepository is the Mongo-backed credential store keyed by googleId.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.IUser {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

func (r *UserRepository) UpsertByGoogleID(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now().UTC()
	set := bson.D{
		{Key: "name", Value: u.Name},
		{Key: "email", Value: u.Email},
		{Key: "profilePicture", Value: u.ProfilePicture},
		{Key: "tokens.accessToken", Value: u.Tokens.AccessToken},
		{Key: "tokens.expiresIn", Value: u.Tokens.ExpiresIn},
		{Key: "tokens.tokenExpiry", Value: u.Tokens.TokenExpiry},
		{Key: "lastLogin", Value: now},
		{Key: "updatedAt", Value: now},
	}
	// Google only returns a refresh token on first consent.
	if u.Tokens.RefreshToken != "" {
		set = append(set, bson.E{Key: "tokens.refreshToken", Value: u.Tokens.RefreshToken})
	}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "googleId", Value: u.GoogleID},
			{Key: "createdAt", Value: now},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.D{{Key: "googleId", Value: u.GoogleID}}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.GoogleID, err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrUserNotFound
	}
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) FindTokenExpiredBefore(ctx context.Context, now time.Time) ([]*model.User, error) {
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "tokens.tokenExpiry", Value: bson.D{{Key: "$lt", Value: now}}}})
	if err != nil {
		return nil, fmt.Errorf("find users with expired tokens: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}()
	users := make([]*model.User, 0)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding user")
			continue
		}
		users = append(users, doc.toModel())
	}
	return users, cursor.Err()
}

func (r *UserRepository) UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.ErrUserNotFound
	}
	now := time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "tokens", Value: newTokenDocument(tokens)},
		{Key: "updatedAt", Value: now},
	}}})
	if err != nil {
		return fmt.Errorf("update tokens for user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
