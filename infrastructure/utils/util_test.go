package utils

import (
	"errors"
	"testing"
	"time"

	"downloader/domain/model"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	u := &model.User{ID: "u-1", Email: "ada@example.com"}
	tok, err := GenerateToken(u, "s3cret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = ParseToken(tok, "other")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken(&model.User{ID: "u-1"}, "s3cret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, "s3cret")
	var ve *jwt.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.NotZero(t, ve.Errors&jwt.ValidationErrorExpired)
}

func TestGenerateToken_RequiresSecret(t *testing.T) {
	_, err := GenerateToken(&model.User{ID: "u-1"}, "", time.Hour)
	assert.Error(t, err)
}
