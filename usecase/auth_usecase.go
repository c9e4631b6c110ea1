package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"downloader/domain/model"
	"downloader/infrastructure/clients/google"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/utils"
)

var ErrAuthNotConfigured = errors.New("google login is not configured")

type LoginResult struct {
	Token string
	User  *model.User
}

type IAuthUsecase interface {
	// LoginURL returns the consent URL and the state value to verify on callback.
	LoginURL() (url, state string, err error)
	Callback(ctx context.Context, code string) (*LoginResult, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
}

type authUsecase struct {
	deps      Deps
	secretKey string
	tokenTTL  time.Duration
}

func NewAuthUsecase(deps Deps, secretKey string, tokenTTL time.Duration) IAuthUsecase {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authUsecase{deps: deps.withDefaults(), secretKey: secretKey, tokenTTL: tokenTTL}
}

func (u *authUsecase) LoginURL() (string, string, error) {
	if u.deps.Google == nil || !u.deps.Google.Configured() {
		return "", "", ErrAuthNotConfigured
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	state := hex.EncodeToString(buf)
	return u.deps.Google.AuthURL(state), state, nil
}

// Callback exchanges the code, upserts the user by Google id and issues a session token.
func (u *authUsecase) Callback(ctx context.Context, code string) (*LoginResult, error) {
	if u.deps.Google == nil || !u.deps.Google.Configured() {
		return nil, ErrAuthNotConfigured
	}
	if code == "" {
		return nil, model.NewValidationError("authorization code is required")
	}
	tok, err := u.deps.Google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	profile, err := u.deps.Google.UserInfo(ctx, tok)
	if err != nil {
		return nil, err
	}

	now := u.deps.Clock()
	candidate := &model.User{
		GoogleID:       profile.GoogleID,
		Name:           profile.Name,
		Email:          profile.Email,
		ProfilePicture: profile.Picture,
	}
	candidate.UpdateTokens(tok.AccessToken, tok.RefreshToken, google.ExpiresIn(tok, now), now)

	user, err := u.deps.Users.UpsertByGoogleID(ctx, candidate)
	if err != nil {
		return nil, err
	}
	token, err := utils.GenerateToken(user, u.secretKey, u.tokenTTL)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("user_id", user.ID).Info("User logged in")
	return &LoginResult{Token: token, User: user}, nil
}

func (u *authUsecase) Profile(ctx context.Context, userID string) (*model.User, error) {
	return u.deps.Users.GetByID(ctx, userID)
}
