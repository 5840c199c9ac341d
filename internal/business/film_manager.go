package business

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/filmorate/internal/model"
)

// FilmStorer writes films and their associations.
// Association inserts are idempotent: adding an existing pair is not an error.
type FilmStorer interface {
	CreateFilm(ctx context.Context, film *model.Film) error
	UpdateFilm(ctx context.Context, film *model.Film) error
	DeleteFilm(ctx context.Context, id int64) error

	AddFilmGenres(ctx context.Context, filmID int64, genreIDs ...int64) error
	RemoveFilmGenre(ctx context.Context, filmID, genreID int64) error
	AddFilmDirectors(ctx context.Context, filmID int64, directorIDs ...int64) error
	RemoveFilmDirector(ctx context.Context, filmID, directorID int64) error
}

// ReferenceChecker tells which ratings, genres and directors a film may reference
type ReferenceChecker interface {
	IsRatingPresent(ctx context.Context, id int64) (bool, error)
	MissingGenres(ctx context.Context, ids ...int64) ([]int64, error)
	MissingDirectors(ctx context.Context, ids ...int64) ([]int64, error)
}

// FilmValidator checks the fields of a film before it is written
type FilmValidator interface {
	ValidateFilm(film *model.Film) error
}

// FilmManager is the mutation surface of the catalog
type FilmManager struct {
	FilmStorer
	ExistenceChecker
	ReferenceChecker
	FilmValidator
	getter *FilmGetter
}

func NewFilmManager(fs FilmStorer, ec ExistenceChecker, rc ReferenceChecker, fv FilmValidator, fg *FilmGetter) *FilmManager {
	return &FilmManager{
		FilmStorer:       fs,
		ExistenceChecker: ec,
		ReferenceChecker: rc,
		FilmValidator:    fv,
		getter:           fg,
	}
}

// CreateFilm validates the film and inserts its scalar fields, setting film.ID.
// Genres and directors are not written: see AttachGenres and AttachDirectors.
func (fm FilmManager) CreateFilm(ctx context.Context, film *model.Film) error {
	if err := fm.checkFilm(ctx, film); err != nil {
		return err
	}
	return fm.insertFilm(ctx, film)
}

func (fm FilmManager) insertFilm(ctx context.Context, film *model.Film) error {
	if err := fm.FilmStorer.CreateFilm(ctx, film); err != nil {
		return fmt.Errorf("could not create film %q: %w", film.Name, err)
	}
	log.Info().Int64("filmID", film.ID).Str("name", film.Name).Msg("Film created")
	return nil
}

// checkFilm validates the fields of the film, then checks that its rating exists
func (fm FilmManager) checkFilm(ctx context.Context, film *model.Film) error {
	if err := fm.FilmValidator.ValidateFilm(film); err != nil {
		return err
	}
	present, err := fm.ReferenceChecker.IsRatingPresent(ctx, film.Rating.ID)
	if err != nil {
		return fmt.Errorf("could not check rating %d: %w", film.Rating.ID, err)
	}
	if !present {
		return model.NewValidationError(model.FieldError{Field: "mpa.id", Message: fmt.Sprintf("unknown rating %d", film.Rating.ID)})
	}
	return nil
}

// checkGenres returns a validation error naming the genres that do not exist
func (fm FilmManager) checkGenres(ctx context.Context, genreIDs []int64) error {
	if len(genreIDs) == 0 {
		return nil
	}
	missing, err := fm.ReferenceChecker.MissingGenres(ctx, genreIDs...)
	if err != nil {
		return fmt.Errorf("could not check genres %v: %w", genreIDs, err)
	}
	if len(missing) > 0 {
		return model.NewValidationError(model.FieldError{Field: "genres", Message: fmt.Sprintf("unknown genres %v", missing)})
	}
	return nil
}

func (fm FilmManager) checkDirectors(ctx context.Context, directorIDs []int64) error {
	if len(directorIDs) == 0 {
		return nil
	}
	missing, err := fm.ReferenceChecker.MissingDirectors(ctx, directorIDs...)
	if err != nil {
		return fmt.Errorf("could not check directors %v: %w", directorIDs, err)
	}
	if len(missing) > 0 {
		return model.NewValidationError(model.FieldError{Field: "directors", Message: fmt.Sprintf("unknown directors %v", missing)})
	}
	return nil
}

// AttachGenres inserts one association per genre of the film. Nil or empty sets are a no-op.
func (fm FilmManager) AttachGenres(ctx context.Context, film *model.Film) error {
	if film == nil || len(film.Genres) == 0 {
		return nil
	}
	if err := checkFilmExists(ctx, fm.ExistenceChecker, film.ID); err != nil {
		return err
	}
	genreIDs := lo.Uniq(film.GenreIDs())
	if err := fm.checkGenres(ctx, genreIDs); err != nil {
		return err
	}
	if err := fm.FilmStorer.AddFilmGenres(ctx, film.ID, genreIDs...); err != nil {
		return fmt.Errorf("could not attach genres to film %d: %w", film.ID, err)
	}
	log.Debug().Int64("filmID", film.ID).Ints64("genreIDs", genreIDs).Msg("Genres attached")
	return nil
}

// AttachDirectors inserts one association per director of the film. Nil or empty sets are a no-op.
func (fm FilmManager) AttachDirectors(ctx context.Context, film *model.Film) error {
	if film == nil || len(film.Directors) == 0 {
		return nil
	}
	if err := checkFilmExists(ctx, fm.ExistenceChecker, film.ID); err != nil {
		return err
	}
	directorIDs := lo.Uniq(film.DirectorIDs())
	if err := fm.checkDirectors(ctx, directorIDs); err != nil {
		return err
	}
	if err := fm.FilmStorer.AddFilmDirectors(ctx, film.ID, directorIDs...); err != nil {
		return fmt.Errorf("could not attach directors to film %d: %w", film.ID, err)
	}
	log.Debug().Int64("filmID", film.ID).Ints64("directorIDs", directorIDs).Msg("Directors attached")
	return nil
}

// AddFilm runs the two-phase creation: scalar fields, then genres, then directors.
// Every reference is checked before the first write, and the film is removed again
// if its associations cannot be written. It returns the film as stored, hydrated.
func (fm FilmManager) AddFilm(ctx context.Context, film *model.Film) (*model.Film, error) {
	if err := fm.checkFilm(ctx, film); err != nil {
		return nil, err
	}
	if err := fm.checkGenres(ctx, lo.Uniq(film.GenreIDs())); err != nil {
		return nil, err
	}
	if err := fm.checkDirectors(ctx, lo.Uniq(film.DirectorIDs())); err != nil {
		return nil, err
	}
	if err := fm.insertFilm(ctx, film); err != nil {
		return nil, err
	}
	if err := fm.AttachGenres(ctx, film); err != nil {
		return nil, fm.discard(ctx, film.ID, err)
	}
	if err := fm.AttachDirectors(ctx, film); err != nil {
		return nil, fm.discard(ctx, film.ID, err)
	}
	return fm.getter.GetFilm(ctx, film.ID)
}

// discard removes a film whose associations could not be written and returns cause
func (fm FilmManager) discard(ctx context.Context, id int64, cause error) error {
	if err := fm.FilmStorer.DeleteFilm(ctx, id); err != nil {
		log.Error().Err(err).Int64("filmID", id).Msg("Could not remove partially created film")
	}
	return cause
}

// UpdateFilm overwrites the scalar fields of an existing film. Associations are left untouched.
func (fm FilmManager) UpdateFilm(ctx context.Context, film *model.Film) error {
	if err := fm.checkFilm(ctx, film); err != nil {
		return err
	}
	if err := checkFilmExists(ctx, fm.ExistenceChecker, film.ID); err != nil {
		return err
	}
	if err := fm.FilmStorer.UpdateFilm(ctx, film); err != nil {
		return fmt.Errorf("could not update film %d: %w", film.ID, err)
	}
	log.Info().Int64("filmID", film.ID).Msg("Film updated")
	return nil
}

// DeleteFilm removes a film. Its likes and associations go with it.
func (fm FilmManager) DeleteFilm(ctx context.Context, id int64) error {
	if err := checkFilmExists(ctx, fm.ExistenceChecker, id); err != nil {
		return err
	}
	if err := fm.FilmStorer.DeleteFilm(ctx, id); err != nil {
		return fmt.Errorf("could not delete film %d: %w", id, err)
	}
	log.Info().Int64("filmID", id).Msg("Film deleted")
	return nil
}

// AddGenre attaches a single genre to a film
func (fm FilmManager) AddGenre(ctx context.Context, filmID, genreID int64) error {
	return fm.AttachGenres(ctx, &model.Film{ID: filmID, Genres: []model.Genre{{ID: genreID}}})
}

// DetachGenre removes a genre from a film. Removing an absent genre is a no-op.
func (fm FilmManager) DetachGenre(ctx context.Context, filmID, genreID int64) error {
	if err := checkFilmExists(ctx, fm.ExistenceChecker, filmID); err != nil {
		return err
	}
	if err := fm.FilmStorer.RemoveFilmGenre(ctx, filmID, genreID); err != nil {
		return fmt.Errorf("could not detach genre %d from film %d: %w", genreID, filmID, err)
	}
	return nil
}

// AddDirector attaches a single director to a film
func (fm FilmManager) AddDirector(ctx context.Context, filmID, directorID int64) error {
	return fm.AttachDirectors(ctx, &model.Film{ID: filmID, Directors: []model.Director{{ID: directorID}}})
}

// DetachDirector removes a director from a film. Removing an absent director is a no-op.
func (fm FilmManager) DetachDirector(ctx context.Context, filmID, directorID int64) error {
	if err := checkFilmExists(ctx, fm.ExistenceChecker, filmID); err != nil {
		return err
	}
	if err := fm.FilmStorer.RemoveFilmDirector(ctx, filmID, directorID); err != nil {
		return fmt.Errorf("could not detach director %d from film %d: %w", directorID, filmID, err)
	}
	return nil
}
