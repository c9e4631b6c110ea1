package http

import (
	"errors"
	"net/http"

	"downloader/domain/model"
	"downloader/infrastructure/logger"
	"downloader/usecase"

	"github.com/gin-gonic/gin"
)

const msgSomethingWentWrong = "Something went wrong!"

// statusFor maps domain errors to HTTP status codes and the message shown to clients.
func statusFor(err error) (int, string) {
	var vErr *model.ValidationError
	var eErr *model.ExtractionFailure
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Message
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "Download not found"
	case errors.Is(err, model.ErrFileMissing):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, model.ErrNotCompleted):
		return http.StatusBadRequest, "Download not completed yet"
	case errors.Is(err, model.ErrExpired):
		return http.StatusGone, "File has expired"
	case errors.Is(err, model.ErrQueueFull):
		return http.StatusServiceUnavailable, "Download queue is full, try again later"
	case errors.Is(err, model.ErrUserNotFound):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, usecase.ErrAuthNotConfigured):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &eErr):
		return http.StatusBadGateway, eErr.Message
	}
	return http.StatusInternalServerError, msgSomethingWentWrong
}

func respondError(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.GetLogger().WithFields(map[string]interface{}{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Request failed")
	}
	c.JSON(code, gin.H{"error": msg})
}
