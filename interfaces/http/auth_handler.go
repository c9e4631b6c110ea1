package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/utils"
	"downloader/interfaces/middleware"
	"downloader/usecase"

	"github.com/gin-gonic/gin"
)

const stateCookie = "oauth_state"

type IAuthHandler interface {
	GetAuthURL(c *gin.Context)
	HandleCallback(c *gin.Context)
	Status(c *gin.Context)
	Logout(c *gin.Context)
}

type AuthHandler struct {
	authUsecase usecase.IAuthUsecase
	secretKey   string
	tokenTTL    time.Duration
	secure      bool
}

func NewAuthHandler(authUsecase usecase.IAuthUsecase, secretKey string, tokenTTL time.Duration, secure bool) IAuthHandler {
	return &AuthHandler{authUsecase: authUsecase, secretKey: secretKey, tokenTTL: tokenTTL, secure: secure}
}

// GetAuthURL handles GET /auth/google
func (h *AuthHandler) GetAuthURL(c *gin.Context) {
	authURL, state, err := h.authUsecase.LoginURL()
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(stateCookie, state, 600, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// HandleCallback handles GET /auth/google/callback
func (h *AuthHandler) HandleCallback(c *gin.Context) {
	if errorParam := c.Query("error"); errorParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": c.Query("error_description"),
		})
		return
	}

	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter"})
		return
	}

	res, err := h.authUsecase.Callback(c.Request.Context(), c.Query("code"))
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) || errors.Is(err, usecase.ErrAuthNotConfigured) {
			respondError(c, err)
			return
		}
		logger.GetLogger().WithField("error", err).Error("Google login failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to complete Google login"})
		return
	}

	c.SetCookie(stateCookie, "", -1, "/", "", h.secure, true)
	c.SetCookie(middleware.TokenCookie, res.Token, int(h.tokenTTL.Seconds()), "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{
		"token": res.Token,
		"user":  dto.NewUserProfile(res.User),
	})
}

// Status handles GET /auth/status
func (h *AuthHandler) Status(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		raw, _ = c.Cookie(middleware.TokenCookie)
	}

	if raw == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	claims, err := utils.ParseToken(raw, h.secretKey)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	user, err := h.authUsecase.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": dto.NewUserProfile(user)})
}

// Logout handles GET /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
