package business_test

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/Agurato/filmorate/internal/model"
)

// fakeStore is an in-memory test double of every store interface.
// Queries return the stored films by ascending ID and record their arguments.
type fakeStore struct {
	films     map[int64]model.Film
	users     map[int64]bool
	genres    map[int64][]int64
	directors map[int64][]int64
	likes     map[model.Like]bool
	unknown   map[int64]bool
	nextID    int64

	// err is returned by every operation, or only by failOn when it is set
	err    error
	failOn string
	calls  map[string]int

	lastPopular  model.PopularQuery
	lastSearch   string
	lastSearchBy model.SearchBy
	lastSort     model.DirectorSort
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		films:     map[int64]model.Film{},
		users:     map[int64]bool{},
		genres:    map[int64][]int64{},
		directors: map[int64][]int64{},
		likes:     map[model.Like]bool{},
		unknown:   map[int64]bool{},
		calls:     map[string]int{},
	}
}

func (s *fakeStore) addFilm(film model.Film) {
	s.films[film.ID] = film
	if film.ID > s.nextID {
		s.nextID = film.ID
	}
}

func (s *fakeStore) call(op string) error {
	s.calls[op]++
	if s.failOn != "" && s.failOn != op {
		return nil
	}
	return s.err
}

func (s *fakeStore) all() []model.Film {
	films := lo.Values(s.films)
	sort.Slice(films, func(i, j int) bool { return films[i].ID < films[j].ID })
	for i := range films {
		films[i].Genres = nil
		films[i].Directors = nil
	}
	return films
}

func (s *fakeStore) GetFilmFromID(_ context.Context, id int64) (*model.Film, error) {
	if err := s.call("GetFilmFromID"); err != nil {
		return nil, err
	}
	film, ok := s.films[id]
	if !ok {
		return nil, model.NewNotFoundError("film", id)
	}
	film.Genres, film.Directors = nil, nil
	return &film, nil
}

func (s *fakeStore) GetFilms(context.Context) ([]model.Film, error) {
	if err := s.call("GetFilms"); err != nil {
		return nil, err
	}
	return s.all(), nil
}

func (s *fakeStore) GetPopularFilms(_ context.Context, query model.PopularQuery) ([]model.Film, error) {
	if err := s.call("GetPopularFilms"); err != nil {
		return nil, err
	}
	s.lastPopular = query
	films := s.all()
	if len(films) > query.Count {
		films = films[:query.Count]
	}
	return films, nil
}

func (s *fakeStore) GetDirectorFilms(_ context.Context, directorID int64, sortBy model.DirectorSort) ([]model.Film, error) {
	if err := s.call("GetDirectorFilms"); err != nil {
		return nil, err
	}
	s.lastSort = sortBy
	return lo.Filter(s.all(), func(f model.Film, _ int) bool {
		return lo.Contains(s.directors[f.ID], directorID)
	}), nil
}

func (s *fakeStore) SearchFilms(_ context.Context, query string, by model.SearchBy) ([]model.Film, error) {
	if err := s.call("SearchFilms"); err != nil {
		return nil, err
	}
	s.lastSearch, s.lastSearchBy = query, by
	return s.all(), nil
}

func (s *fakeStore) GetCommonFilms(context.Context, int64, int64) ([]model.Film, error) {
	if err := s.call("GetCommonFilms"); err != nil {
		return nil, err
	}
	return s.all(), nil
}

func (s *fakeStore) GetFilmsLikedByUser(context.Context, int64) ([]model.Film, error) {
	if err := s.call("GetFilmsLikedByUser"); err != nil {
		return nil, err
	}
	return s.all(), nil
}

func (s *fakeStore) IsFilmPresent(_ context.Context, id int64) (bool, error) {
	if err := s.call("IsFilmPresent"); err != nil {
		return false, err
	}
	_, ok := s.films[id]
	return ok, nil
}

func (s *fakeStore) IsUserPresent(_ context.Context, id int64) (bool, error) {
	if err := s.call("IsUserPresent"); err != nil {
		return false, err
	}
	return s.users[id], nil
}

func (s *fakeStore) IsRatingPresent(_ context.Context, id int64) (bool, error) {
	if err := s.call("IsRatingPresent"); err != nil {
		return false, err
	}
	return !s.unknown[id], nil
}

func (s *fakeStore) MissingGenres(_ context.Context, ids ...int64) ([]int64, error) {
	if err := s.call("MissingGenres"); err != nil {
		return nil, err
	}
	return lo.Filter(ids, func(id int64, _ int) bool { return s.unknown[id] }), nil
}

func (s *fakeStore) MissingDirectors(_ context.Context, ids ...int64) ([]int64, error) {
	if err := s.call("MissingDirectors"); err != nil {
		return nil, err
	}
	return lo.Filter(ids, func(id int64, _ int) bool { return s.unknown[id] }), nil
}

func (s *fakeStore) CreateFilm(_ context.Context, film *model.Film) error {
	if err := s.call("CreateFilm"); err != nil {
		return err
	}
	s.nextID++
	film.ID = s.nextID
	s.films[film.ID] = model.Film{
		ID:          film.ID,
		Name:        film.Name,
		Description: film.Description,
		ReleaseDate: film.ReleaseDate,
		Duration:    film.Duration,
		Rating:      film.Rating,
	}
	return nil
}

func (s *fakeStore) UpdateFilm(_ context.Context, film *model.Film) error {
	if err := s.call("UpdateFilm"); err != nil {
		return err
	}
	s.films[film.ID] = *film
	return nil
}

func (s *fakeStore) DeleteFilm(_ context.Context, id int64) error {
	if err := s.call("DeleteFilm"); err != nil {
		return err
	}
	delete(s.films, id)
	delete(s.genres, id)
	delete(s.directors, id)
	return nil
}

func (s *fakeStore) AddFilmGenres(_ context.Context, filmID int64, genreIDs ...int64) error {
	if err := s.call("AddFilmGenres"); err != nil {
		return err
	}
	s.genres[filmID] = lo.Uniq(append(s.genres[filmID], genreIDs...))
	return nil
}

func (s *fakeStore) RemoveFilmGenre(_ context.Context, filmID, genreID int64) error {
	if err := s.call("RemoveFilmGenre"); err != nil {
		return err
	}
	s.genres[filmID] = lo.Without(s.genres[filmID], genreID)
	return nil
}

func (s *fakeStore) AddFilmDirectors(_ context.Context, filmID int64, directorIDs ...int64) error {
	if err := s.call("AddFilmDirectors"); err != nil {
		return err
	}
	s.directors[filmID] = lo.Uniq(append(s.directors[filmID], directorIDs...))
	return nil
}

func (s *fakeStore) RemoveFilmDirector(_ context.Context, filmID, directorID int64) error {
	if err := s.call("RemoveFilmDirector"); err != nil {
		return err
	}
	s.directors[filmID] = lo.Without(s.directors[filmID], directorID)
	return nil
}

func (s *fakeStore) GetFilmsGenres(_ context.Context, filmIDs ...int64) (map[int64][]model.Genre, error) {
	if err := s.call("GetFilmsGenres"); err != nil {
		return nil, err
	}
	genres := map[int64][]model.Genre{}
	for _, id := range filmIDs {
		ids := append([]int64{}, s.genres[id]...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, genreID := range ids {
			genres[id] = append(genres[id], model.Genre{ID: genreID})
		}
	}
	return genres, nil
}

func (s *fakeStore) GetFilmsDirectors(_ context.Context, filmIDs ...int64) (map[int64][]model.Director, error) {
	if err := s.call("GetFilmsDirectors"); err != nil {
		return nil, err
	}
	directors := map[int64][]model.Director{}
	for _, id := range filmIDs {
		ids := append([]int64{}, s.directors[id]...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, directorID := range ids {
			directors[id] = append(directors[id], model.Director{ID: directorID})
		}
	}
	return directors, nil
}

func (s *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if err := s.call("CreateUser"); err != nil {
		return err
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.ID] = true
	return nil
}

func (s *fakeStore) AddLike(_ context.Context, like model.Like) error {
	if err := s.call("AddLike"); err != nil {
		return err
	}
	s.likes[like] = true
	return nil
}

func (s *fakeStore) RemoveLike(_ context.Context, like model.Like) error {
	if err := s.call("RemoveLike"); err != nil {
		return err
	}
	delete(s.likes, like)
	return nil
}

func (s *fakeStore) CreateDirector(_ context.Context, director *model.Director) error {
	if err := s.call("CreateDirector"); err != nil {
		return err
	}
	director.ID = int64(s.calls["CreateDirector"])
	return nil
}

func (s *fakeStore) GetGenres(context.Context) ([]model.Genre, error) {
	if err := s.call("GetGenres"); err != nil {
		return nil, err
	}
	return []model.Genre{{ID: 1, Name: "Comedy"}}, nil
}

func (s *fakeStore) GetRatings(context.Context) ([]model.Rating, error) {
	if err := s.call("GetRatings"); err != nil {
		return nil, err
	}
	return []model.Rating{{ID: 1, Name: "G"}}, nil
}
