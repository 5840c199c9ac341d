package business

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/Agurato/filmorate/internal/model"
)

// GenreGetter returns the genres of the given films, keyed by film ID
type GenreGetter interface {
	GetFilmsGenres(ctx context.Context, filmIDs ...int64) (map[int64][]model.Genre, error)
}

// DirectorGetter returns the directors of the given films, keyed by film ID
type DirectorGetter interface {
	GetFilmsDirectors(ctx context.Context, filmIDs ...int64) (map[int64][]model.Director, error)
}

// Hydrator populates the genre and director sets of films already fetched.
// A result set costs one genre and one director round trip, whatever its size.
type Hydrator struct {
	GenreGetter
	DirectorGetter
}

func NewHydrator(gg GenreGetter, dg DirectorGetter) *Hydrator {
	return &Hydrator{
		GenreGetter:    gg,
		DirectorGetter: dg,
	}
}

// Hydrate replaces the genre and director sets of every film, in place.
// Films without associations get empty, non-nil sets.
func (h Hydrator) Hydrate(ctx context.Context, films []model.Film) error {
	if len(films) == 0 {
		return nil
	}
	ids := lo.Map(films, func(f model.Film, _ int) int64 { return f.ID })

	genres, err := h.GenreGetter.GetFilmsGenres(ctx, ids...)
	if err != nil {
		return fmt.Errorf("could not get genres of films: %w", err)
	}
	directors, err := h.DirectorGetter.GetFilmsDirectors(ctx, ids...)
	if err != nil {
		return fmt.Errorf("could not get directors of films: %w", err)
	}

	for i := range films {
		films[i].Genres = lo.UniqBy(append([]model.Genre{}, genres[films[i].ID]...), func(g model.Genre) int64 { return g.ID })
		films[i].Directors = lo.UniqBy(append([]model.Director{}, directors[films[i].ID]...), func(d model.Director) int64 { return d.ID })
	}
	return nil
}
