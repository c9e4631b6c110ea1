package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"downloader/domain/model"
	"downloader/domain/repository"
	"downloader/infrastructure/logger"

	"github.com/google/uuid"
)

const userColumns = `id, google_id, name, email, profile_picture, access_token, refresh_token, expires_in, token_expiry, last_login, created_at, updated_at`

// UserRepositorySQL is the database/sql implementation of IUser.
type UserRepositorySQL struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserRepositorySQL(db *sql.DB, dialect Dialect) repository.IUser {
	return &UserRepositorySQL{db: db, dialect: dialect}
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Name, &u.Email, &u.ProfilePicture, &u.Tokens.AccessToken, &u.Tokens.RefreshToken,
		&u.Tokens.ExpiresIn, &u.Tokens.TokenExpiry, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepositorySQL) UpsertByGoogleID(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, r.dialect.upsert, uuid.NewString(), u.GoogleID, u.Name, u.Email, u.ProfilePicture,
		u.Tokens.AccessToken, u.Tokens.RefreshToken, u.Tokens.ExpiresIn, u.Tokens.TokenExpiry, now, now, now)
	saved, err := scanUser(row)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":     err,
			"google_id": u.GoogleID,
		}).Error("sql: upsert user failed")
		return nil, fmt.Errorf("upsert user %s: %w", u.GoogleID, err)
	}
	return saved, nil
}

func (r *UserRepositorySQL) GetByID(ctx context.Context, id string) (*model.User, error) {
	q := r.dialect.rebind(`SELECT ` + userColumns + ` FROM {users} WHERE id = $1`)
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user %s: %w", id, err)
	}
	return u, nil
}

func (r *UserRepositorySQL) FindTokenExpiredBefore(ctx context.Context, now time.Time) ([]*model.User, error) {
	q := r.dialect.rebind(`SELECT ` + userColumns + ` FROM {users} WHERE token_expiry < $1`)
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("query users with expired tokens: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepositorySQL) UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error {
	q := r.dialect.rebind(`UPDATE {users} SET access_token = $1, refresh_token = $2, expires_in = $3, token_expiry = $4, updated_at = $5 WHERE id = $6`)
	res, err := r.db.ExecContext(ctx, q, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn, tokens.TokenExpiry, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update tokens for user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
