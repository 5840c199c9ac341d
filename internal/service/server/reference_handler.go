package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/filmorate/internal/model"
)

type ReferenceManager interface {
	CreateDirector(ctx context.Context, director *model.Director) error
	GetGenres(ctx context.Context) ([]model.Genre, error)
	GetRatings(ctx context.Context) ([]model.Rating, error)
}

// ReferenceHandler serves the directors, genres and ratings films point to
type ReferenceHandler struct {
	ReferenceManager
}

func NewReferenceHandler(rm ReferenceManager) *ReferenceHandler {
	return &ReferenceHandler{
		ReferenceManager: rm,
	}
}

// POSTDirector creates a director
func (rh ReferenceHandler) POSTDirector(c *gin.Context) {
	var director model.Director
	if err := c.ShouldBindJSON(&director); err != nil {
		renderError(c, model.NewValidationError(model.FieldError{Field: "body", Message: err.Error()}))
		return
	}
	if err := rh.ReferenceManager.CreateDirector(c.Request.Context(), &director); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, director)
}

func (rh ReferenceHandler) GETGenres(c *gin.Context) {
	genres, err := rh.ReferenceManager.GetGenres(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}

func (rh ReferenceHandler) GETRatings(c *gin.Context) {
	ratings, err := rh.ReferenceManager.GetRatings(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}
