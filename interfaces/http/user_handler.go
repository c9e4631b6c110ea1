package http

import (
	"net/http"

	"downloader/domain/dto"
	"downloader/interfaces/middleware"
	"downloader/usecase"

	"github.com/gin-gonic/gin"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

type IUserHandler interface {
	Me(c *gin.Context)
}

type UserHandler struct {
	authUsecase usecase.IAuthUsecase
}

func NewUserHandler(authUsecase usecase.IAuthUsecase) IUserHandler {
	return &UserHandler{authUsecase: authUsecase}
}

// Me handles GET /api/user
func (userHandler *UserHandler) Me(c *gin.Context) {
	user, err := userHandler.authUsecase.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserProfile(user))
}
