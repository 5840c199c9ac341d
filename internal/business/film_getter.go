package business

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/filmorate/internal/model"
)

// FilmQuerier runs the ranking and search queries against the store.
// Returned films carry their scalar fields and rating, not their genre and director sets.
type FilmQuerier interface {
	GetFilmFromID(ctx context.Context, id int64) (*model.Film, error)
	GetFilms(ctx context.Context) ([]model.Film, error)
	GetPopularFilms(ctx context.Context, query model.PopularQuery) ([]model.Film, error)
	GetDirectorFilms(ctx context.Context, directorID int64, sortBy model.DirectorSort) ([]model.Film, error)
	SearchFilms(ctx context.Context, query string, by model.SearchBy) ([]model.Film, error)
	GetCommonFilms(ctx context.Context, userID, friendID int64) ([]model.Film, error)
	GetFilmsLikedByUser(ctx context.Context, userID int64) ([]model.Film, error)
}

// ExistenceChecker tells whether an identity denotes a live record
type ExistenceChecker interface {
	IsFilmPresent(ctx context.Context, id int64) (bool, error)
	IsUserPresent(ctx context.Context, id int64) (bool, error)
}

// FilmGetterOption configures a FilmGetter
type FilmGetterOption func(*FilmGetter)

// WithHydration makes every query return films with their genre and director sets
func WithHydration() FilmGetterOption {
	return func(fg *FilmGetter) {
		fg.hydrateAll = true
	}
}

// FilmGetter answers the read-only catalog queries
type FilmGetter struct {
	FilmQuerier
	ExistenceChecker
	*Hydrator
	hydrateAll bool
}

func NewFilmGetter(fq FilmQuerier, ec ExistenceChecker, h *Hydrator, opts ...FilmGetterOption) *FilmGetter {
	fg := &FilmGetter{
		FilmQuerier:      fq,
		ExistenceChecker: ec,
		Hydrator:         h,
	}
	for _, opt := range opts {
		opt(fg)
	}
	return fg
}

// GetFilm returns a fully hydrated film
func (fg FilmGetter) GetFilm(ctx context.Context, id int64) (*model.Film, error) {
	if err := fg.checkFilm(ctx, id); err != nil {
		return nil, err
	}
	film, err := fg.FilmQuerier.GetFilmFromID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get film %d: %w", id, err)
	}
	films := []model.Film{*film}
	if err := fg.Hydrator.Hydrate(ctx, films); err != nil {
		return nil, err
	}
	return &films[0], nil
}

// GetFilms returns every film by ascending ID
func (fg FilmGetter) GetFilms(ctx context.Context) ([]model.Film, error) {
	films, err := fg.FilmQuerier.GetFilms(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get films: %w", err)
	}
	return fg.maybeHydrate(ctx, films)
}

// GetPopularFilms returns at most query.Count films, most liked first, ties by ascending ID
func (fg FilmGetter) GetPopularFilms(ctx context.Context, query model.PopularQuery) ([]model.Film, error) {
	if query.Count < 0 {
		return nil, model.NewValidationError(model.FieldError{Field: "count", Message: "must not be negative"})
	}
	if query.Count == 0 {
		query.Count = model.DefaultPopularCount
	}
	log.Debug().Int("count", query.Count).Interface("genreId", query.GenreID).Interface("year", query.Year).Msg("Getting popular films")

	films, err := fg.FilmQuerier.GetPopularFilms(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not get popular films: %w", err)
	}
	return fg.maybeHydrate(ctx, films)
}

// GetTopFilms returns the count most liked films
func (fg FilmGetter) GetTopFilms(ctx context.Context, count int) ([]model.Film, error) {
	return fg.GetPopularFilms(ctx, model.PopularQuery{Count: count})
}

// GetTopFilmsByGenre returns the count most liked films of a genre
func (fg FilmGetter) GetTopFilmsByGenre(ctx context.Context, count int, genreID int64) ([]model.Film, error) {
	return fg.GetPopularFilms(ctx, model.PopularQuery{Count: count, GenreID: &genreID})
}

// GetTopFilmsByYear returns the count most liked films released during year
func (fg FilmGetter) GetTopFilmsByYear(ctx context.Context, count, year int) ([]model.Film, error) {
	return fg.GetPopularFilms(ctx, model.PopularQuery{Count: count, Year: &year})
}

// GetTopFilmsByGenreAndYear returns the count most liked films of a genre released during year
func (fg FilmGetter) GetTopFilmsByGenreAndYear(ctx context.Context, count int, genreID int64, year int) ([]model.Film, error) {
	return fg.GetPopularFilms(ctx, model.PopularQuery{Count: count, GenreID: &genreID, Year: &year})
}

// GetDirectorFilms returns every film of a director, always hydrated
func (fg FilmGetter) GetDirectorFilms(ctx context.Context, directorID int64, sortBy model.DirectorSort) ([]model.Film, error) {
	if sortBy != model.SortByYear && sortBy != model.SortByLikes {
		return nil, model.NewValidationError(model.FieldError{Field: "sortBy", Message: fmt.Sprintf("unknown sort %q", sortBy)})
	}
	films, err := fg.FilmQuerier.GetDirectorFilms(ctx, directorID, sortBy)
	if err != nil {
		return nil, fmt.Errorf("could not get films of director %d: %w", directorID, err)
	}
	if err := fg.Hydrator.Hydrate(ctx, films); err != nil {
		return nil, err
	}
	return films, nil
}

// SearchFilms matches query as a case-insensitive substring of the title and/or a director name.
// An empty query matches every film.
func (fg FilmGetter) SearchFilms(ctx context.Context, query string, by model.SearchBy) ([]model.Film, error) {
	if !by.Title() && !by.Director() {
		return nil, model.NewValidationError(model.FieldError{Field: "by", Message: "must contain title or director"})
	}
	films, err := fg.FilmQuerier.SearchFilms(ctx, query, by)
	if err != nil {
		return nil, fmt.Errorf("could not search films with %q: %w", query, err)
	}
	log.Debug().Str("query", query).Int("results", len(films)).Msg("Searched films")
	return fg.maybeHydrate(ctx, films)
}

// SearchFilmsByTitle searches films whose title contains query
func (fg FilmGetter) SearchFilmsByTitle(ctx context.Context, query string) ([]model.Film, error) {
	return fg.SearchFilms(ctx, query, model.SearchByTitle)
}

// SearchFilmsByDirectorName searches films with a director whose name contains query
func (fg FilmGetter) SearchFilmsByDirectorName(ctx context.Context, query string) ([]model.Film, error) {
	return fg.SearchFilms(ctx, query, model.SearchByDirector)
}

// SearchFilmsByTitleOrDirectorName searches films matching query on their title or a director name
func (fg FilmGetter) SearchFilmsByTitleOrDirectorName(ctx context.Context, query string) ([]model.Film, error) {
	return fg.SearchFilms(ctx, query, model.SearchByTitle|model.SearchByDirector)
}

// GetCommonFilms returns the films liked by both users, by ascending ID
func (fg FilmGetter) GetCommonFilms(ctx context.Context, userID, friendID int64) ([]model.Film, error) {
	if err := fg.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := fg.checkUser(ctx, friendID); err != nil {
		return nil, err
	}
	if userID == friendID {
		return fg.likedBy(ctx, userID)
	}
	films, err := fg.FilmQuerier.GetCommonFilms(ctx, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("could not get common films of users %d and %d: %w", userID, friendID, err)
	}
	return fg.maybeHydrate(ctx, films)
}

// GetFilmsLikedByUser returns the films liked by a user, by ascending ID
func (fg FilmGetter) GetFilmsLikedByUser(ctx context.Context, userID int64) ([]model.Film, error) {
	if err := fg.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	return fg.likedBy(ctx, userID)
}

func (fg FilmGetter) likedBy(ctx context.Context, userID int64) ([]model.Film, error) {
	films, err := fg.FilmQuerier.GetFilmsLikedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not get films liked by user %d: %w", userID, err)
	}
	return fg.maybeHydrate(ctx, films)
}

func (fg FilmGetter) maybeHydrate(ctx context.Context, films []model.Film) ([]model.Film, error) {
	if !fg.hydrateAll {
		return films, nil
	}
	if err := fg.Hydrator.Hydrate(ctx, films); err != nil {
		return nil, err
	}
	return films, nil
}

func (fg FilmGetter) checkFilm(ctx context.Context, id int64) error {
	return checkFilmExists(ctx, fg.ExistenceChecker, id)
}

func (fg FilmGetter) checkUser(ctx context.Context, id int64) error {
	return checkUserExists(ctx, fg.ExistenceChecker, id)
}

func checkUserExists(ctx context.Context, ec ExistenceChecker, id int64) error {
	present, err := ec.IsUserPresent(ctx, id)
	if err != nil {
		return fmt.Errorf("could not check user %d: %w", id, err)
	}
	if !present {
		return model.NewNotFoundError("user", id)
	}
	return nil
}

func checkFilmExists(ctx context.Context, ec ExistenceChecker, id int64) error {
	present, err := ec.IsFilmPresent(ctx, id)
	if err != nil {
		return fmt.Errorf("could not check film %d: %w", id, err)
	}
	if !present {
		return model.NewNotFoundError("film", id)
	}
	return nil
}
