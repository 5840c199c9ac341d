package infrastructure_test

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/filmorate/internal/business"
	"github.com/Agurato/filmorate/internal/model"
	"github.com/Agurato/filmorate/internal/validation"
)

// filmStore is implemented by every backend
type filmStore interface {
	business.FilmQuerier
	business.ExistenceChecker
	business.ReferenceChecker
	business.FilmStorer
	business.GenreGetter
	business.DirectorGetter

	CreateUser(ctx context.Context, user *model.User) error
	CreateDirector(ctx context.Context, director *model.Director) error
	AddLike(ctx context.Context, like model.Like) error
	RemoveLike(ctx context.Context, like model.Like) error
	GetGenres(ctx context.Context) ([]model.Genre, error)
	GetRatings(ctx context.Context) ([]model.Rating, error)
}

const (
	comedy int64 = 1
	drama  int64 = 2
	action int64 = 6
)

type catalog struct {
	t     *testing.T
	ctx   context.Context
	store filmStore
	fg    *business.FilmGetter
	fm    *business.FilmManager
}

func newCatalog(t *testing.T, s filmStore) *catalog {
	fg := business.NewFilmGetter(s, s, business.NewHydrator(s, s), business.WithHydration())
	fv := validation.NewFilmValidatorAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	return &catalog{
		t:     t,
		ctx:   context.Background(),
		store: s,
		fg:    fg,
		fm:    business.NewFilmManager(s, s, s, fv, fg),
	}
}

func (c *catalog) film(name, released string, genres []int64, directors ...int64) model.Film {
	c.t.Helper()
	date, err := model.ParseDate(released)
	require.NoError(c.t, err)
	film := &model.Film{
		Name:        name,
		Description: name + " description",
		ReleaseDate: date,
		Duration:    100,
		Rating:      model.Rating{ID: 2},
		Genres:      lo.Map(genres, func(id int64, _ int) model.Genre { return model.Genre{ID: id} }),
		Directors:   lo.Map(directors, func(id int64, _ int) model.Director { return model.Director{ID: id} }),
	}
	created, err := c.fm.AddFilm(c.ctx, film)
	require.NoError(c.t, err)
	return *created
}

func (c *catalog) user(login string) int64 {
	c.t.Helper()
	user := &model.User{Email: login + "@example.com", Login: login, Name: login}
	require.NoError(c.t, c.store.CreateUser(c.ctx, user))
	return user.ID
}

func (c *catalog) director(name string) int64 {
	c.t.Helper()
	director := &model.Director{Name: name}
	require.NoError(c.t, c.store.CreateDirector(c.ctx, director))
	return director.ID
}

func (c *catalog) like(filmID int64, userIDs ...int64) {
	c.t.Helper()
	for _, userID := range userIDs {
		require.NoError(c.t, c.store.AddLike(c.ctx, model.Like{UserID: userID, FilmID: filmID}))
	}
}

func ids(films []model.Film) []int64 {
	return lo.Map(films, func(f model.Film, _ int) int64 { return f.ID })
}

// testFilmStore runs the catalog behaviour every backend must share.
// newStore returns an empty store for each subtest.
func testFilmStore(t *testing.T, newStore func(t *testing.T) filmStore) {
	t.Run("Reference data", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		genres, err := c.store.GetGenres(c.ctx)
		require.NoError(t, err)
		assert.Len(t, genres, 6)
		assert.Equal(t, model.Genre{ID: drama, Name: "Drama"}, genres[1])

		ratings, err := c.store.GetRatings(c.ctx)
		require.NoError(t, err)
		assert.NotNil(t, ratings)
		assert.Equal(t, []string{"G", "PG", "PG-13", "R", "NC-17"}, lo.Map(ratings, func(r model.Rating, _ int) string { return r.Name }))
	})

	t.Run("Create then get", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		created := c.film("Alpha", "2020-05-01", nil)

		film, err := c.fg.GetFilm(c.ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, film.ID)
		assert.Equal(t, "Alpha", film.Name)
		assert.Equal(t, "Alpha description", film.Description)
		assert.Equal(t, "2020-05-01", film.ReleaseDate.String())
		assert.Equal(t, 100, film.Duration)
		assert.Equal(t, model.Rating{ID: 2, Name: "PG"}, film.Rating)
		assert.Empty(t, film.Genres)
		assert.Empty(t, film.Directors)

		_, err = c.fg.GetFilm(c.ctx, created.ID+1)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Unknown references", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		film := &model.Film{Name: "Alpha", ReleaseDate: model.NewDate(2020, time.May, 1), Duration: 100, Rating: model.Rating{ID: 42}}
		assert.ErrorIs(t, c.fm.CreateFilm(c.ctx, film), model.ErrValidation)
		films, err := c.fg.GetFilms(c.ctx)
		require.NoError(t, err)
		assert.Empty(t, films)

		withGenre := &model.Film{Name: "Beta", ReleaseDate: model.NewDate(2020, time.May, 1), Duration: 100, Rating: model.Rating{ID: 1}, Genres: []model.Genre{{ID: drama}, {ID: 42}}}
		_, err = c.fm.AddFilm(c.ctx, withGenre)
		assert.ErrorIs(t, err, model.ErrValidation)
		withDirector := &model.Film{Name: "Gamma", ReleaseDate: model.NewDate(2020, time.May, 1), Duration: 100, Rating: model.Rating{ID: 1}, Directors: []model.Director{{ID: 42}}}
		_, err = c.fm.AddFilm(c.ctx, withDirector)
		assert.ErrorIs(t, err, model.ErrValidation)
		films, err = c.fg.GetFilms(c.ctx)
		require.NoError(t, err)
		assert.Empty(t, films, "no film is kept when a reference is unknown")

		alpha := c.film("Alpha", "2020-05-01", nil)
		assert.ErrorIs(t, c.fm.AddGenre(c.ctx, alpha.ID, 42), model.ErrValidation)
		assert.ErrorIs(t, c.fm.AddDirector(c.ctx, alpha.ID, 42), model.ErrValidation)

		update := alpha
		update.Rating = model.Rating{ID: 42}
		assert.ErrorIs(t, c.fm.UpdateFilm(c.ctx, &update), model.ErrValidation)
		film, err = c.fg.GetFilm(c.ctx, alpha.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Rating{ID: 2, Name: "PG"}, film.Rating)
	})

	t.Run("Missing references", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		smith := c.director("Smith")

		present, err := c.store.IsRatingPresent(c.ctx, 5)
		require.NoError(t, err)
		assert.True(t, present)
		present, err = c.store.IsRatingPresent(c.ctx, 6)
		require.NoError(t, err)
		assert.False(t, present)

		missing, err := c.store.MissingGenres(c.ctx, comedy, 42, drama, 42)
		require.NoError(t, err)
		assert.Equal(t, []int64{42}, missing)
		missing, err = c.store.MissingDirectors(c.ctx, smith, smith+1)
		require.NoError(t, err)
		assert.Equal(t, []int64{smith + 1}, missing)
		missing, err = c.store.MissingDirectors(c.ctx)
		require.NoError(t, err)
		assert.Empty(t, missing)
	})

	t.Run("Alpha scenario", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		smith := c.director("Smith")
		alpha := c.film("Alpha", "2020-05-01", []int64{drama}, smith)
		c.like(alpha.ID, c.user("u1"), c.user("u2"), c.user("u3"))

		films, err := c.fg.GetTopFilms(c.ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{alpha.ID}, ids(films))

		films, err = c.fg.GetTopFilmsByYear(c.ctx, 5, 2020)
		require.NoError(t, err)
		assert.Equal(t, []int64{alpha.ID}, ids(films))

		films, err = c.fg.GetTopFilmsByYear(c.ctx, 5, 2019)
		require.NoError(t, err)
		assert.Empty(t, films)

		films, err = c.fg.GetDirectorFilms(c.ctx, smith, model.SortByYear)
		require.NoError(t, err)
		require.Len(t, films, 1)
		assert.Equal(t, alpha.ID, films[0].ID)
		assert.Equal(t, []model.Genre{{ID: drama, Name: "Drama"}}, films[0].Genres)
		assert.Equal(t, []model.Director{{ID: smith, Name: "Smith"}}, films[0].Directors)
	})

	t.Run("Common films", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		x := c.film("X", "2001-01-01", nil)
		y := c.film("Y", "2002-01-01", nil)
		u1, u2, u3 := c.user("u1"), c.user("u2"), c.user("u3")
		c.like(x.ID, u1, u2)
		c.like(y.ID, u3)

		films, err := c.fg.GetCommonFilms(c.ctx, u1, u2)
		require.NoError(t, err)
		assert.Equal(t, []int64{x.ID}, ids(films))

		films, err = c.fg.GetCommonFilms(c.ctx, u2, u1)
		require.NoError(t, err)
		assert.Equal(t, []int64{x.ID}, ids(films))

		films, err = c.fg.GetCommonFilms(c.ctx, u1, u3)
		require.NoError(t, err)
		assert.NotNil(t, films)
		assert.Empty(t, films)

		films, err = c.fg.GetCommonFilms(c.ctx, u1, u1)
		require.NoError(t, err)
		assert.Equal(t, []int64{x.ID}, ids(films))

		_, err = c.fg.GetCommonFilms(c.ctx, u1, u3+100)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Liked by user", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		a := c.film("A", "2001-01-01", nil)
		b := c.film("B", "2002-01-01", nil)
		c.film("C", "2003-01-01", nil)
		u := c.user("u")
		c.like(b.ID, u)
		c.like(a.ID, u)

		films, err := c.fg.GetFilmsLikedByUser(c.ctx, u)
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, b.ID}, ids(films))

		require.NoError(t, c.store.RemoveLike(c.ctx, model.Like{UserID: u, FilmID: a.ID}))
		films, err = c.fg.GetFilmsLikedByUser(c.ctx, u)
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID}, ids(films))

		_, err = c.fg.GetFilmsLikedByUser(c.ctx, u+1)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Duplicate attach", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		smith := c.director("Smith")
		alpha := c.film("Alpha", "2020-05-01", []int64{drama, comedy, drama}, smith, smith)

		again := &model.Film{ID: alpha.ID, Genres: []model.Genre{{ID: comedy}, {ID: drama}}, Directors: []model.Director{{ID: smith}}}
		require.NoError(t, c.fm.AttachGenres(c.ctx, again))
		require.NoError(t, c.fm.AttachDirectors(c.ctx, again))

		expected := []model.Genre{{ID: comedy, Name: "Comedy"}, {ID: drama, Name: "Drama"}}
		film, err := c.fg.GetFilm(c.ctx, alpha.ID)
		require.NoError(t, err)
		assert.Equal(t, expected, film.Genres)
		assert.Equal(t, []model.Director{{ID: smith, Name: "Smith"}}, film.Directors)

		films, err := c.fg.GetTopFilms(c.ctx, 10)
		require.NoError(t, err)
		require.Len(t, films, 1)
		assert.Equal(t, expected, films[0].Genres)
	})

	t.Run("Detach", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		smith := c.director("Smith")
		alpha := c.film("Alpha", "2020-05-01", []int64{drama, comedy}, smith)

		require.NoError(t, c.fm.DetachGenre(c.ctx, alpha.ID, comedy))
		require.NoError(t, c.fm.DetachGenre(c.ctx, alpha.ID, action))
		require.NoError(t, c.fm.DetachDirector(c.ctx, alpha.ID, smith))

		film, err := c.fg.GetFilm(c.ctx, alpha.ID)
		require.NoError(t, err)
		assert.Equal(t, []model.Genre{{ID: drama, Name: "Drama"}}, film.Genres)
		assert.Empty(t, film.Directors)

		films, err := c.fg.GetDirectorFilms(c.ctx, smith, model.SortByYear)
		require.NoError(t, err)
		assert.Empty(t, films)
	})

	t.Run("Update", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		alpha := c.film("Alpha", "2020-05-01", []int64{drama})

		update := &model.Film{ID: alpha.ID, Name: "Alpha Redux", ReleaseDate: model.NewDate(2021, time.March, 3), Duration: 120, Rating: model.Rating{ID: 4}}
		require.NoError(t, c.fm.UpdateFilm(c.ctx, update))

		film, err := c.fg.GetFilm(c.ctx, alpha.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alpha Redux", film.Name)
		assert.Equal(t, "2021-03-03", film.ReleaseDate.String())
		assert.Equal(t, 120, film.Duration)
		assert.Equal(t, model.Rating{ID: 4, Name: "R"}, film.Rating)
		assert.Equal(t, []model.Genre{{ID: drama, Name: "Drama"}}, film.Genres)

		films, err := c.fg.SearchFilmsByTitle(c.ctx, "redux")
		require.NoError(t, err)
		assert.Equal(t, []int64{alpha.ID}, ids(films))

		update.ID = alpha.ID + 1
		assert.ErrorIs(t, c.fm.UpdateFilm(c.ctx, update), model.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		smith := c.director("Smith")
		alpha := c.film("Alpha", "2020-05-01", []int64{drama}, smith)
		beta := c.film("Beta", "2020-06-01", []int64{drama}, smith)
		u1, u2 := c.user("u1"), c.user("u2")
		c.like(alpha.ID, u1, u2)
		c.like(beta.ID, u1)

		require.NoError(t, c.fm.DeleteFilm(c.ctx, alpha.ID))

		_, err := c.fg.GetFilm(c.ctx, alpha.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.ErrorIs(t, c.fm.DeleteFilm(c.ctx, alpha.ID), model.ErrNotFound)

		films, err := c.fg.GetFilmsLikedByUser(c.ctx, u2)
		require.NoError(t, err)
		assert.Empty(t, films)

		films, err = c.fg.GetDirectorFilms(c.ctx, smith, model.SortByLikes)
		require.NoError(t, err)
		assert.Equal(t, []int64{beta.ID}, ids(films))

		films, err = c.fg.GetTopFilmsByGenre(c.ctx, 10, drama)
		require.NoError(t, err)
		assert.Equal(t, []int64{beta.ID}, ids(films))
	})

	t.Run("Top liked", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		f1 := c.film("F1", "2001-01-01", nil)
		f2 := c.film("F2", "2002-01-01", nil)
		f3 := c.film("F3", "2003-01-01", nil)
		f4 := c.film("F4", "2004-01-01", nil)
		u1, u2, u3 := c.user("u1"), c.user("u2"), c.user("u3")
		c.like(f2.ID, u1, u2)
		c.like(f3.ID, u1, u2, u3)
		c.like(f4.ID, u2, u3)
		c.like(f4.ID, u2)

		films, err := c.fg.GetTopFilms(c.ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{f3.ID, f2.ID, f4.ID, f1.ID}, ids(films))

		likes := map[int64]int{f1.ID: 0, f2.ID: 2, f3.ID: 3, f4.ID: 2}
		for n := 0; n <= 5; n++ {
			films, err := c.fg.GetTopFilms(c.ctx, n)
			require.NoError(t, err)
			if n == 0 {
				assert.Len(t, films, 4, "count 0 falls back to the default")
				continue
			}
			assert.LessOrEqual(t, len(films), n)
			kept := ids(films)
			for id, count := range likes {
				if lo.Contains(kept, id) {
					continue
				}
				for _, k := range kept {
					assert.GreaterOrEqual(t, likes[k], count)
				}
			}
		}

		_, err = c.fg.GetTopFilms(c.ctx, -1)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Genre and year", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		u1, u2, u3 := c.user("u1"), c.user("u2"), c.user("u3")
		a := c.film("A", "2020-01-01", []int64{drama, comedy})
		b := c.film("B", "2020-12-31", []int64{drama})
		d := c.film("D", "2019-07-14", []int64{drama})
		e := c.film("E", "2020-03-01", []int64{action})
		f := c.film("F", "2020-04-01", nil)
		c.like(a.ID, u1)
		c.like(b.ID, u1, u2)
		c.like(d.ID, u1, u2, u3)
		c.like(e.ID, u1, u2, u3)

		byGenre, err := c.fg.GetTopFilmsByGenre(c.ctx, 10, drama)
		require.NoError(t, err)
		assert.Equal(t, []int64{d.ID, b.ID, a.ID}, ids(byGenre))

		byYear, err := c.fg.GetTopFilmsByYear(c.ctx, 10, 2020)
		require.NoError(t, err)
		assert.Equal(t, []int64{e.ID, b.ID, a.ID, f.ID}, ids(byYear))

		both, err := c.fg.GetTopFilmsByGenreAndYear(c.ctx, 10, drama, 2020)
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID, a.ID}, ids(both))
		assert.Subset(t, lo.Intersect(ids(byGenre), ids(byYear)), ids(both))

		both, err = c.fg.GetTopFilmsByGenreAndYear(c.ctx, 1, drama, 2020)
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID}, ids(both))

		none, err := c.fg.GetTopFilmsByGenreAndYear(c.ctx, 10, action, 2019)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Director films", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		smith := c.director("Smith")
		other := c.director("Jones")
		late := c.film("Late", "2010-01-01", nil, smith)
		early := c.film("Early", "1999-01-01", nil, smith)
		c.film("Other", "2005-01-01", nil, other)
		c.like(late.ID, c.user("u1"))

		films, err := c.fg.GetDirectorFilms(c.ctx, smith, model.SortByYear)
		require.NoError(t, err)
		assert.Equal(t, []int64{early.ID, late.ID}, ids(films))

		films, err = c.fg.GetDirectorFilms(c.ctx, smith, model.SortByLikes)
		require.NoError(t, err)
		assert.Equal(t, []int64{late.ID, early.ID}, ids(films))

		films, err = c.fg.GetDirectorFilms(c.ctx, other+100, model.SortByYear)
		require.NoError(t, err)
		assert.Empty(t, films)
	})

	t.Run("Search", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		wachowski := c.director("Lana Wachowski")
		scott := c.director("Ridley Scott")
		matrix := c.film("The Matrix", "1999-03-31", nil, wachowski)
		reloaded := c.film("Matrix Reloaded", "2003-05-15", nil, wachowski)
		alien := c.film("Alien", "1979-05-25", nil, scott)
		eclair := c.film("Éclair de lune", "2001-01-01", nil)
		c.like(reloaded.ID, c.user("u1"))

		films, err := c.fg.SearchFilmsByTitle(c.ctx, "MATRIX")
		require.NoError(t, err)
		assert.Equal(t, []int64{reloaded.ID, matrix.ID}, ids(films))

		films, err = c.fg.SearchFilmsByTitle(c.ctx, "éCLAIR")
		require.NoError(t, err)
		assert.Equal(t, []int64{eclair.ID}, ids(films))

		films, err = c.fg.SearchFilmsByTitle(c.ctx, "")
		require.NoError(t, err)
		assert.Len(t, films, 4)

		films, err = c.fg.SearchFilmsByTitle(c.ctx, "m_tr")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{matrix.ID, reloaded.ID}, ids(films))

		byDirector, err := c.fg.SearchFilmsByDirectorName(c.ctx, "scott")
		require.NoError(t, err)
		assert.Equal(t, []int64{alien.ID}, ids(byDirector))

		for _, query := range []string{"al", "ri", "matrix", "", "zzz"} {
			byTitle, err := c.fg.SearchFilmsByTitle(c.ctx, query)
			require.NoError(t, err)
			byDirector, err := c.fg.SearchFilmsByDirectorName(c.ctx, query)
			require.NoError(t, err)
			either, err := c.fg.SearchFilmsByTitleOrDirectorName(c.ctx, query)
			require.NoError(t, err)
			assert.Subset(t, ids(either), lo.Union(ids(byTitle), ids(byDirector)), query)
			assert.Len(t, either, len(lo.Uniq(ids(either))), query)
		}
	})

	t.Run("Like twice", func(t *testing.T) {
		c := newCatalog(t, newStore(t))
		a := c.film("A", "2001-01-01", nil)
		b := c.film("B", "2002-01-01", nil)
		u1, u2, u3 := c.user("u1"), c.user("u2"), c.user("u3")
		c.like(a.ID, u1, u1, u1)
		c.like(b.ID, u2, u3)

		films, err := c.fg.GetTopFilms(c.ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID, a.ID}, ids(films))
	})
}
