package business

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/filmorate/internal/model"
)

// ReferenceStorer holds the directors, genres and ratings films point to
type ReferenceStorer interface {
	CreateDirector(ctx context.Context, director *model.Director) error
	GetGenres(ctx context.Context) ([]model.Genre, error)
	GetRatings(ctx context.Context) ([]model.Rating, error)
}

type DirectorValidator interface {
	ValidateDirector(director *model.Director) error
}

type ReferenceManager struct {
	ReferenceStorer
	DirectorValidator
}

func NewReferenceManager(rs ReferenceStorer, dv DirectorValidator) *ReferenceManager {
	return &ReferenceManager{
		ReferenceStorer:   rs,
		DirectorValidator: dv,
	}
}

// CreateDirector checks the director name and adds it to the database
func (rm ReferenceManager) CreateDirector(ctx context.Context, director *model.Director) error {
	if err := rm.DirectorValidator.ValidateDirector(director); err != nil {
		return err
	}
	if err := rm.ReferenceStorer.CreateDirector(ctx, director); err != nil {
		return fmt.Errorf("could not create director %q: %w", director.Name, err)
	}
	log.Info().Int64("directorID", director.ID).Str("name", director.Name).Msg("Director created")
	return nil
}

// GetGenres returns every genre by ascending ID
func (rm ReferenceManager) GetGenres(ctx context.Context) ([]model.Genre, error) {
	genres, err := rm.ReferenceStorer.GetGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get genres: %w", err)
	}
	return genres, nil
}

// GetRatings returns every age rating by ascending ID
func (rm ReferenceManager) GetRatings(ctx context.Context) ([]model.Rating, error) {
	ratings, err := rm.ReferenceStorer.GetRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get ratings: %w", err)
	}
	return ratings, nil
}
