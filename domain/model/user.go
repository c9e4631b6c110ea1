package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenBundle is the OAuth credential set stored per user.
type TokenBundle struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresIn    int64     `json:"expiresIn"`
	TokenExpiry  time.Time `json:"tokenExpiry"`
}

type User struct {
	ID             string      `json:"id"`
	GoogleID       string      `json:"googleId"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	ProfilePicture string      `json:"profilePicture,omitempty"`
	Tokens         TokenBundle `json:"tokens"`
	LastLogin      time.Time   `json:"lastLogin"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (u *User) IsTokenExpired(now time.Time) bool {
	return now.After(u.Tokens.TokenExpiry)
}

// UpdateTokens replaces the bundle; an empty refresh token keeps the stored one.
func (u *User) UpdateTokens(accessToken, refreshToken string, expiresIn int64, now time.Time) {
	u.Tokens.AccessToken = accessToken
	if refreshToken != "" {
		u.Tokens.RefreshToken = refreshToken
	}
	u.Tokens.ExpiresIn = expiresIn
	u.Tokens.TokenExpiry = now.Add(time.Duration(expiresIn) * time.Second)
	u.LastLogin = now
}

// UserClaims is the JWT payload issued after a successful Google login.
type UserClaims struct {
	jwt.StandardClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
