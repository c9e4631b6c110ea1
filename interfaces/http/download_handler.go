package http

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"downloader/domain/dto"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/utils"
	"downloader/interfaces/middleware"
	"downloader/usecase"

	"github.com/gin-gonic/gin"
)

const msgDownloadStarted = "Download started"

type IDownloadHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	File(c *gin.Context)
	Delete(c *gin.Context)
	Formats(c *gin.Context)
}

type DownloadHandler struct {
	downloadUsecase usecase.IDownloadUsecase
}

func NewDownloadHandler(downloadUsecase usecase.IDownloadUsecase) IDownloadHandler {
	return &DownloadHandler{downloadUsecase: downloadUsecase}
}

// Create handles POST /api/download
func (h *DownloadHandler) Create(c *gin.Context) {
	var req dto.CreateDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL and type are required"})
		return
	}

	d, err := h.downloadUsecase.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CreateDownloadResponse{
		ID:      d.ID,
		Status:  string(d.Status),
		Message: msgDownloadStarted,
	})
}

// Get handles GET /api/download/:id
func (h *DownloadHandler) Get(c *gin.Context) {
	d, err := h.downloadUsecase.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewDownloadResponse(d, utils.GetCurrentTime()))
}

// List handles GET /api/downloads
func (h *DownloadHandler) List(c *gin.Context) {
	list, err := h.downloadUsecase.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	now := utils.GetCurrentTime()
	out := make([]dto.DownloadResponse, 0, len(list))
	for _, d := range list {
		out = append(out, dto.NewDownloadResponse(d, now))
	}
	c.JSON(http.StatusOK, out)
}

// File handles GET /api/download/:id/file
func (h *DownloadHandler) File(c *gin.Context) {
	file, err := h.downloadUsecase.OpenFile(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Content.Close()

	name := attachmentName(file.Download.OriginalFileName, file.Download.FileName)
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(c.Writer, c.Request, name, file.ModTime, file.Content)
}

// attachmentName is the title shown to the user, carrying the stored file's extension.
func attachmentName(original, stored string) string {
	if original == "" || original == "pending" {
		return stored
	}
	ext := filepath.Ext(stored)
	if ext != "" && !strings.EqualFold(filepath.Ext(original), ext) {
		return original + ext
	}
	return original
}

// Delete handles DELETE /api/download/:id
func (h *DownloadHandler) Delete(c *gin.Context) {
	if err := h.downloadUsecase.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Download deleted successfully"})
}

// Formats handles POST /api/formats
func (h *DownloadHandler) Formats(c *gin.Context) {
	var req dto.FormatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	body, err := h.downloadUsecase.Formats(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
