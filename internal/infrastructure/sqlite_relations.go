package infrastructure

import (
	"context"
	"time"

	"github.com/Agurato/filmorate/internal/model"
)

// GetFilmsGenres returns the genres of the given films, sorted by ID, keyed by film ID
func (s *SQLite) GetFilmsGenres(ctx context.Context, filmIDs ...int64) (genres map[int64][]model.Genre, err error) {
	defer s.observe("get_films_genres", time.Now(), &err)
	genres = make(map[int64][]model.Genre, len(filmIDs))
	if len(filmIDs) == 0 {
		return genres, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT fg.film_id, g.genre_id, g.genre_name
		FROM films_genres fg JOIN genres g ON g.genre_id = fg.genre_id
		WHERE fg.film_id IN (`+inPlaceholders(len(filmIDs))+`)
		ORDER BY fg.film_id, g.genre_id`, int64Args(filmIDs)...)
	if err != nil {
		return nil, model.NewStoreError("get_films_genres", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			filmID int64
			genre  model.Genre
		)
		if err := rows.Scan(&filmID, &genre.ID, &genre.Name); err != nil {
			return nil, model.NewStoreError("get_films_genres", err)
		}
		genres[filmID] = append(genres[filmID], genre)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("get_films_genres", err)
	}
	return genres, nil
}

// GetFilmsDirectors returns the directors of the given films, sorted by ID, keyed by film ID
func (s *SQLite) GetFilmsDirectors(ctx context.Context, filmIDs ...int64) (directors map[int64][]model.Director, err error) {
	defer s.observe("get_films_directors", time.Now(), &err)
	directors = make(map[int64][]model.Director, len(filmIDs))
	if len(filmIDs) == 0 {
		return directors, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT fd.film_id, d.director_id, d.director_name
		FROM film_director fd JOIN directors d ON d.director_id = fd.director_id
		WHERE fd.film_id IN (`+inPlaceholders(len(filmIDs))+`)
		ORDER BY fd.film_id, d.director_id`, int64Args(filmIDs)...)
	if err != nil {
		return nil, model.NewStoreError("get_films_directors", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			filmID   int64
			director model.Director
		)
		if err := rows.Scan(&filmID, &director.ID, &director.Name); err != nil {
			return nil, model.NewStoreError("get_films_directors", err)
		}
		directors[filmID] = append(directors[filmID], director)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("get_films_directors", err)
	}
	return directors, nil
}

// AddFilmGenres associates genres to a film. Existing pairs are ignored.
func (s *SQLite) AddFilmGenres(ctx context.Context, filmID int64, genreIDs ...int64) (err error) {
	defer s.observe("add_film_genres", time.Now(), &err)
	return s.insertPairs(ctx, "add_film_genres", `INSERT OR IGNORE INTO films_genres (film_id, genre_id) VALUES (?, ?)`, filmID, genreIDs)
}

// AddFilmDirectors associates directors to a film. Existing pairs are ignored.
func (s *SQLite) AddFilmDirectors(ctx context.Context, filmID int64, directorIDs ...int64) (err error) {
	defer s.observe("add_film_directors", time.Now(), &err)
	return s.insertPairs(ctx, "add_film_directors", `INSERT OR IGNORE INTO film_director (film_id, director_id) VALUES (?, ?)`, filmID, directorIDs)
}

// insertPairs inserts (filmID, id) for every id in a single transaction
func (s *SQLite) insertPairs(ctx context.Context, op, stmt string, filmID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewStoreError(op, err)
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return model.NewStoreError(op, err)
	}
	defer insert.Close()
	for _, id := range ids {
		if _, err := insert.ExecContext(ctx, filmID, id); err != nil {
			return model.NewStoreError(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.NewStoreError(op, err)
	}
	return nil
}

// RemoveFilmGenre dissociates a genre from a film
func (s *SQLite) RemoveFilmGenre(ctx context.Context, filmID, genreID int64) (err error) {
	defer s.observe("remove_film_genre", time.Now(), &err)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM films_genres WHERE film_id = ? AND genre_id = ?`, filmID, genreID); err != nil {
		return model.NewStoreError("remove_film_genre", err)
	}
	return nil
}

// RemoveFilmDirector dissociates a director from a film
func (s *SQLite) RemoveFilmDirector(ctx context.Context, filmID, directorID int64) (err error) {
	defer s.observe("remove_film_director", time.Now(), &err)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM film_director WHERE film_id = ? AND director_id = ?`, filmID, directorID); err != nil {
		return model.NewStoreError("remove_film_director", err)
	}
	return nil
}

// GetGenres returns every genre, by ascending ID
func (s *SQLite) GetGenres(ctx context.Context) (genres []model.Genre, err error) {
	defer s.observe("get_genres", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT genre_id, genre_name FROM genres ORDER BY genre_id`)
	if err != nil {
		return nil, model.NewStoreError("get_genres", err)
	}
	defer rows.Close()
	genres = []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, model.NewStoreError("get_genres", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("get_genres", err)
	}
	return genres, nil
}

// GetRatings returns every age rating, by ascending ID
func (s *SQLite) GetRatings(ctx context.Context) (ratings []model.Rating, err error) {
	defer s.observe("get_ratings", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT rating_id, rating_name FROM ratings ORDER BY rating_id`)
	if err != nil {
		return nil, model.NewStoreError("get_ratings", err)
	}
	defer rows.Close()
	ratings = []model.Rating{}
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, model.NewStoreError("get_ratings", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("get_ratings", err)
	}
	return ratings, nil
}

// CreateDirector inserts a director and sets its ID
func (s *SQLite) CreateDirector(ctx context.Context, director *model.Director) (err error) {
	defer s.observe("create_director", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `INSERT INTO directors (director_name, director_name_folded) VALUES (?, ?)`,
		director.Name, fold(director.Name))
	if err != nil {
		return model.NewStoreError("create_director", err)
	}
	if director.ID, err = res.LastInsertId(); err != nil {
		return model.NewStoreError("create_director", err)
	}
	return nil
}

// CreateUser inserts a user and sets its ID
func (s *SQLite) CreateUser(ctx context.Context, user *model.User) (err error) {
	defer s.observe("create_user", time.Now(), &err)
	var birthday any
	if !user.Birthday.IsZero() {
		birthday = user.Birthday.String()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (email, login, name, birthday) VALUES (?, ?, ?, ?)`,
		user.Email, user.Login, user.Name, birthday)
	if err != nil {
		return model.NewStoreError("create_user", err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return model.NewStoreError("create_user", err)
	}
	return nil
}

// AddLike records that a user likes a film. Liking twice is a no-op.
func (s *SQLite) AddLike(ctx context.Context, like model.Like) (err error) {
	defer s.observe("add_like", time.Now(), &err)
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO films_likes (film_id, user_id) VALUES (?, ?)`, like.FilmID, like.UserID); err != nil {
		return model.NewStoreError("add_like", err)
	}
	return nil
}

// RemoveLike removes the like of a user on a film
func (s *SQLite) RemoveLike(ctx context.Context, like model.Like) (err error) {
	defer s.observe("remove_like", time.Now(), &err)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM films_likes WHERE film_id = ? AND user_id = ?`, like.FilmID, like.UserID); err != nil {
		return model.NewStoreError("remove_like", err)
	}
	return nil
}
