package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/filmorate/internal/model"
)

type UserManager interface {
	CreateUser(ctx context.Context, user *model.User) error
	AddLike(ctx context.Context, filmID, userID int64) error
	RemoveLike(ctx context.Context, filmID, userID int64) error
}

type UserHandler struct {
	UserManager
}

func NewUserHandler(um UserManager) *UserHandler {
	return &UserHandler{
		UserManager: um,
	}
}

// POSTUser registers a user
func (uh UserHandler) POSTUser(c *gin.Context) {
	var user model.User
	if err := c.ShouldBindJSON(&user); err != nil {
		renderError(c, model.NewValidationError(model.FieldError{Field: "body", Message: err.Error()}))
		return
	}
	if err := uh.UserManager.CreateUser(c.Request.Context(), &user); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (uh UserHandler) PUTLike(c *gin.Context) {
	uh.like(c, uh.UserManager.AddLike)
}

func (uh UserHandler) DELETELike(c *gin.Context) {
	uh.like(c, uh.UserManager.RemoveLike)
}

func (uh UserHandler) like(c *gin.Context, op func(ctx context.Context, filmID, userID int64) error) {
	filmID, err := idParam(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	userID, err := idParam(c, "userId")
	if err != nil {
		renderError(c, err)
		return
	}
	if err := op(c.Request.Context(), filmID, userID); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
