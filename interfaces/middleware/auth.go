package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"downloader/domain/dto"
	"downloader/domain/repository"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// TokenCookie is the cookie set by the login callback for browser clients.
const TokenCookie = "token"

// Auth accepts a bearer token (or the session cookie), checks that the user still
// exists and stores its id under "user_id".
func Auth(userRepository repository.IUser, secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		raw := bearerToken(ctx)
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		claims, err := utils.ParseToken(raw, secretKey)
		if err != nil {
			res.ResponseMessage = reason(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		if _, err := userRepository.GetByID(ctx.Request.Context(), claims.UserID); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"user_id": claims.UserID,
				"error":   err,
			}).Warn("Token user not found")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		ctx.Set("user_id", claims.UserID)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	authorization := ctx.Request.Header.Get("Authorization")
	if authorization != "" {
		auth := strings.SplitN(authorization, "Bearer ", 2)
		if len(auth) != 2 {
			return ""
		}
		return strings.TrimSpace(auth[1])
	}
	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Unauthorized"
}

// UserID returns the id set by Auth.
func UserID(ctx *gin.Context) string {
	return ctx.GetString("user_id")
}
