package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/filmorate/internal/business"
	"github.com/Agurato/filmorate/internal/model"
)

type FilmGetter interface {
	GetFilm(ctx context.Context, id int64) (*model.Film, error)
	GetFilms(ctx context.Context) ([]model.Film, error)
	GetPopularFilms(ctx context.Context, query model.PopularQuery) ([]model.Film, error)
	GetDirectorFilms(ctx context.Context, directorID int64, sortBy model.DirectorSort) ([]model.Film, error)
	SearchFilms(ctx context.Context, query string, by model.SearchBy) ([]model.Film, error)
	GetCommonFilms(ctx context.Context, userID, friendID int64) ([]model.Film, error)
	GetFilmsLikedByUser(ctx context.Context, userID int64) ([]model.Film, error)
}

type FilmManager interface {
	AddFilm(ctx context.Context, film *model.Film) (*model.Film, error)
	UpdateFilm(ctx context.Context, film *model.Film) error
	DeleteFilm(ctx context.Context, id int64) error
	AddGenre(ctx context.Context, filmID, genreID int64) error
	DetachGenre(ctx context.Context, filmID, genreID int64) error
	AddDirector(ctx context.Context, filmID, directorID int64) error
	DetachDirector(ctx context.Context, filmID, directorID int64) error
}

type FilmHandler struct {
	FilmGetter
	FilmManager
	paginater *business.Paginater[model.Film]
}

func NewFilmHandler(fg FilmGetter, fm FilmManager, fp *business.Paginater[model.Film]) *FilmHandler {
	return &FilmHandler{
		FilmGetter:  fg,
		FilmManager: fm,
		paginater:   fp,
	}
}

// GETFilms lists every film, or a single page of them when the page parameter is set
func (fh FilmHandler) GETFilms(c *gin.Context) {
	films, err := fh.FilmGetter.GetFilms(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	p, ok := c.GetQuery("page")
	if !ok {
		c.JSON(http.StatusOK, films)
		return
	}
	page, err := strconv.ParseInt(p, 10, 64)
	if err != nil {
		renderError(c, model.NewValidationError(model.FieldError{Field: "page", Message: "must be an integer"}))
		return
	}
	films, pagination, err := fh.paginater.GetPage(page, films)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(pagination.TotalItems, 10))
	c.Header("X-Total-Pages", strconv.FormatInt(pagination.TotalPages, 10))
	c.JSON(http.StatusOK, films)
}

// GETFilm returns a single film
func (fh FilmHandler) GETFilm(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	film, err := fh.FilmGetter.GetFilm(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, film)
}

// POSTFilm creates a film with its genres and directors
func (fh FilmHandler) POSTFilm(c *gin.Context) {
	var film model.Film
	if err := c.ShouldBindJSON(&film); err != nil {
		renderError(c, model.NewValidationError(model.FieldError{Field: "body", Message: err.Error()}))
		return
	}
	created, err := fh.FilmManager.AddFilm(c.Request.Context(), &film)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// PUTFilm overwrites the scalar fields of the film identified in the body
func (fh FilmHandler) PUTFilm(c *gin.Context) {
	var film model.Film
	if err := c.ShouldBindJSON(&film); err != nil {
		renderError(c, model.NewValidationError(model.FieldError{Field: "body", Message: err.Error()}))
		return
	}
	if err := fh.FilmManager.UpdateFilm(c.Request.Context(), &film); err != nil {
		renderError(c, err)
		return
	}
	updated, err := fh.FilmGetter.GetFilm(c.Request.Context(), film.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DELETEFilm deletes a film
func (fh FilmHandler) DELETEFilm(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	if err := fh.FilmManager.DeleteFilm(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (fh FilmHandler) PUTFilmGenre(c *gin.Context) {
	fh.association(c, "genreId", fh.FilmManager.AddGenre)
}

func (fh FilmHandler) DELETEFilmGenre(c *gin.Context) {
	fh.association(c, "genreId", fh.FilmManager.DetachGenre)
}

func (fh FilmHandler) PUTFilmDirector(c *gin.Context) {
	fh.association(c, "directorId", fh.FilmManager.AddDirector)
}

func (fh FilmHandler) DELETEFilmDirector(c *gin.Context) {
	fh.association(c, "directorId", fh.FilmManager.DetachDirector)
}

// association applies op to the film and the referenced genre or director, then returns the film
func (fh FilmHandler) association(c *gin.Context, refParam string, op func(ctx context.Context, filmID, refID int64) error) {
	filmID, err := idParam(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	refID, err := idParam(c, refParam)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := op(c.Request.Context(), filmID, refID); err != nil {
		renderError(c, err)
		return
	}
	film, err := fh.FilmGetter.GetFilm(c.Request.Context(), filmID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, film)
}

// GETPopularFilms lists the most liked films, optionally of a genre and/or a year
func (fh FilmHandler) GETPopularFilms(c *gin.Context) {
	var query model.PopularQuery
	if count, ok := c.GetQuery("count"); ok {
		n, err := strconv.Atoi(count)
		if err != nil {
			renderError(c, model.NewValidationError(model.FieldError{Field: "count", Message: "must be an integer"}))
			return
		}
		query.Count = n
	}
	if genre, ok := c.GetQuery("genreId"); ok {
		genreID, err := strconv.ParseInt(genre, 10, 64)
		if err != nil {
			renderError(c, model.NewValidationError(model.FieldError{Field: "genreId", Message: "must be an integer"}))
			return
		}
		query.GenreID = &genreID
	}
	if y, ok := c.GetQuery("year"); ok {
		year, err := strconv.Atoi(y)
		if err != nil {
			renderError(c, model.NewValidationError(model.FieldError{Field: "year", Message: "must be an integer"}))
			return
		}
		query.Year = &year
	}

	films, err := fh.FilmGetter.GetPopularFilms(c.Request.Context(), query)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, films)
}

// GETDirectorFilms lists the films of a director, sorted by year or likes
func (fh FilmHandler) GETDirectorFilms(c *gin.Context) {
	directorID, err := idParam(c, "directorId")
	if err != nil {
		renderError(c, err)
		return
	}
	sortBy, err := model.ParseDirectorSort(c.DefaultQuery("sortBy", string(model.SortByYear)))
	if err != nil {
		renderError(c, err)
		return
	}
	films, err := fh.FilmGetter.GetDirectorFilms(c.Request.Context(), directorID, sortBy)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, films)
}

// GETSearchFilms searches films by title and/or director name
func (fh FilmHandler) GETSearchFilms(c *gin.Context) {
	by, err := model.ParseSearchBy(c.DefaultQuery("by", "title"))
	if err != nil {
		renderError(c, err)
		return
	}
	films, err := fh.FilmGetter.SearchFilms(c.Request.Context(), c.Query("query"), by)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, films)
}

// GETCommonFilms lists the films liked by both users
func (fh FilmHandler) GETCommonFilms(c *gin.Context) {
	userID, err := idQuery(c, "userId")
	if err != nil {
		renderError(c, err)
		return
	}
	friendID, err := idQuery(c, "friendId")
	if err != nil {
		renderError(c, err)
		return
	}
	films, err := fh.FilmGetter.GetCommonFilms(c.Request.Context(), userID, friendID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, films)
}

// GETFilmsLikedByUser lists the films liked by a user
func (fh FilmHandler) GETFilmsLikedByUser(c *gin.Context) {
	userID, err := idParam(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	films, err := fh.FilmGetter.GetFilmsLikedByUser(c.Request.Context(), userID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, films)
}

func idParam(c *gin.Context, name string) (int64, error) {
	return parseID(name, c.Param(name))
}

func idQuery(c *gin.Context, name string) (int64, error) {
	return parseID(name, c.Query(name))
}

func parseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, model.NewValidationError(model.FieldError{Field: name, Message: "must be an integer"})
	}
	return id, nil
}
