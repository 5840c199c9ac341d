package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/filmorate/internal/model"
)

const requestIDHeader = "X-Request-ID"

// NewServer initializes the router
func NewServer(filmHandler *FilmHandler, userHandler *UserHandler, referenceHandler *ReferenceHandler) *gin.Engine {
	router := gin.New()
	router.SetTrustedProxies(nil)
	router.Use(gin.Recovery(), requestID, requestLogger)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	films := router.Group("/films")
	films.GET("", filmHandler.GETFilms)
	films.POST("", filmHandler.POSTFilm)
	films.PUT("", filmHandler.PUTFilm)
	films.GET("/popular", filmHandler.GETPopularFilms)
	films.GET("/search", filmHandler.GETSearchFilms)
	films.GET("/common", filmHandler.GETCommonFilms)
	films.GET("/director/:directorId", filmHandler.GETDirectorFilms)
	films.GET("/:id", filmHandler.GETFilm)
	films.DELETE("/:id", filmHandler.DELETEFilm)
	films.PUT("/:id/genres/:genreId", filmHandler.PUTFilmGenre)
	films.DELETE("/:id/genres/:genreId", filmHandler.DELETEFilmGenre)
	films.PUT("/:id/directors/:directorId", filmHandler.PUTFilmDirector)
	films.DELETE("/:id/directors/:directorId", filmHandler.DELETEFilmDirector)
	films.PUT("/:id/like/:userId", userHandler.PUTLike)
	films.DELETE("/:id/like/:userId", userHandler.DELETELike)

	router.POST("/users", userHandler.POSTUser)
	router.GET("/users/:id/films/liked", filmHandler.GETFilmsLikedByUser)

	router.POST("/directors", referenceHandler.POSTDirector)
	router.GET("/genres", referenceHandler.GETGenres)
	router.GET("/mpa", referenceHandler.GETRatings)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such route"})
	})

	return router
}

// requestID reuses the upstream request ID, or creates one
func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(requestIDHeader, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Info().
		Str("requestID", c.GetString(requestIDHeader)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("duration", time.Since(start)).
		Msg("Request served")
}

// renderError maps the error kinds to HTTP statuses
func renderError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": validationErr.Fields})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("requestID", c.GetString(requestIDHeader)).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
