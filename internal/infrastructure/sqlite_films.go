package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Agurato/filmorate/internal/model"
)

// filmColumns are the columns read by scanFilm, in order
const filmColumns = `f.film_id, f.name, f.description, f.release_date, f.duration, f.rating_id, r.rating_name`

const filmsFrom = `FROM films f JOIN ratings r ON r.rating_id = f.rating_id`

// directorMatch is true when a director of film f has a name matching the parameter
const directorMatch = `EXISTS (SELECT 1 FROM film_director fd JOIN directors d ON d.director_id = fd.director_id
	WHERE fd.film_id = f.film_id AND d.director_name_folded LIKE '%' || ? || '%')`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanFilm maps a row of filmColumns to a Film, without genres nor directors
func scanFilm(row rowScanner) (model.Film, error) {
	var (
		film        model.Film
		releaseDate string
	)
	if err := row.Scan(&film.ID, &film.Name, &film.Description, &releaseDate, &film.Duration, &film.Rating.ID, &film.Rating.Name); err != nil {
		return model.Film{}, err
	}
	date, err := model.ParseDate(releaseDate)
	if err != nil {
		return model.Film{}, fmt.Errorf("invalid release date %q of film %d: %w", releaseDate, film.ID, err)
	}
	film.ReleaseDate = date
	return film, nil
}

// queryFilms runs a query selecting filmColumns and maps every row.
// Rows are fully read before returning, so the connection is free for the next query.
func (s *SQLite) queryFilms(ctx context.Context, op, query string, args ...any) ([]model.Film, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.NewStoreError(op, err)
	}
	defer rows.Close()

	films := []model.Film{}
	for rows.Next() {
		film, err := scanFilm(rows)
		if err != nil {
			return nil, model.NewStoreError(op, err)
		}
		films = append(films, film)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError(op, err)
	}
	return films, nil
}

// GetFilmFromID returns a film without its associations
func (s *SQLite) GetFilmFromID(ctx context.Context, id int64) (film *model.Film, err error) {
	defer s.observe("get_film", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+filmColumns+` `+filmsFrom+` WHERE f.film_id = ?`, id)
	f, err := scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("film", id)
	}
	if err != nil {
		return nil, model.NewStoreError("get_film", err)
	}
	return &f, nil
}

// GetFilms returns every film, by ascending ID
func (s *SQLite) GetFilms(ctx context.Context) (films []model.Film, err error) {
	defer s.observe("get_films", time.Now(), &err)
	return s.queryFilms(ctx, "get_films", `SELECT `+filmColumns+` `+filmsFrom+` ORDER BY f.film_id`)
}

// GetPopularFilms returns the most liked films matching the optional genre and year filters
func (s *SQLite) GetPopularFilms(ctx context.Context, query model.PopularQuery) (films []model.Film, err error) {
	defer s.observe("get_popular_films", time.Now(), &err)

	var (
		where []string
		args  []any
	)
	if query.GenreID != nil {
		where = append(where, `EXISTS (SELECT 1 FROM films_genres fg WHERE fg.film_id = f.film_id AND fg.genre_id = ?)`)
		args = append(args, *query.GenreID)
	}
	if query.Year != nil {
		where = append(where, `CAST(strftime('%Y', f.release_date) AS INTEGER) = ?`)
		args = append(args, *query.Year)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + filmColumns + ` ` + filmsFrom + ` LEFT JOIN films_likes l ON l.film_id = f.film_id`)
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	sb.WriteString(` GROUP BY f.film_id ORDER BY COUNT(l.user_id) DESC, f.film_id LIMIT ?`)
	args = append(args, query.Count)

	return s.queryFilms(ctx, "get_popular_films", sb.String(), args...)
}

// GetDirectorFilms returns the films of a director sorted by release date or by likes
func (s *SQLite) GetDirectorFilms(ctx context.Context, directorID int64, sortBy model.DirectorSort) (films []model.Film, err error) {
	defer s.observe("get_director_films", time.Now(), &err)

	var query string
	switch sortBy {
	case model.SortByYear:
		query = `SELECT ` + filmColumns + ` ` + filmsFrom + `
			JOIN film_director fd ON fd.film_id = f.film_id
			WHERE fd.director_id = ?
			ORDER BY f.release_date, f.film_id`
	case model.SortByLikes:
		query = `SELECT ` + filmColumns + ` ` + filmsFrom + `
			JOIN film_director fd ON fd.film_id = f.film_id
			LEFT JOIN films_likes l ON l.film_id = f.film_id
			WHERE fd.director_id = ?
			GROUP BY f.film_id
			ORDER BY COUNT(l.user_id) DESC, f.film_id`
	default:
		return nil, model.NewValidationError(model.FieldError{Field: "sortBy", Message: fmt.Sprintf("unknown sort %q", sortBy)})
	}
	return s.queryFilms(ctx, "get_director_films", query, directorID)
}

// SearchFilms returns the films whose title and/or director name contains query, most liked first.
// Matching is case-insensitive; "%" and "_" in query are wildcards.
func (s *SQLite) SearchFilms(ctx context.Context, query string, by model.SearchBy) (films []model.Film, err error) {
	defer s.observe("search_films", time.Now(), &err)

	needle := fold(query)
	var (
		where []string
		args  []any
	)
	if by.Title() {
		where = append(where, `f.name_folded LIKE '%' || ? || '%'`)
		args = append(args, needle)
	}
	if by.Director() {
		where = append(where, directorMatch)
		args = append(args, needle)
	}
	if len(where) == 0 {
		return []model.Film{}, nil
	}

	sqlQuery := `SELECT ` + filmColumns + ` ` + filmsFrom + `
		LEFT JOIN films_likes l ON l.film_id = f.film_id
		WHERE ` + strings.Join(where, ` OR `) + `
		GROUP BY f.film_id
		ORDER BY COUNT(l.user_id) DESC, f.film_id`
	return s.queryFilms(ctx, "search_films", sqlQuery, args...)
}

// GetCommonFilms returns the films liked by both users.
// Likes of the two users are grouped by film, and only films liked more than once are kept.
func (s *SQLite) GetCommonFilms(ctx context.Context, userID, friendID int64) (films []model.Film, err error) {
	defer s.observe("get_common_films", time.Now(), &err)
	return s.queryFilms(ctx, "get_common_films", `SELECT `+filmColumns+` `+filmsFrom+`
		JOIN films_likes l ON l.film_id = f.film_id
		WHERE l.user_id IN (?, ?)
		GROUP BY f.film_id
		HAVING COUNT(DISTINCT l.user_id) > 1
		ORDER BY f.film_id`, userID, friendID)
}

// GetFilmsLikedByUser returns the films liked by a user, by ascending ID
func (s *SQLite) GetFilmsLikedByUser(ctx context.Context, userID int64) (films []model.Film, err error) {
	defer s.observe("get_films_liked_by_user", time.Now(), &err)
	return s.queryFilms(ctx, "get_films_liked_by_user", `SELECT `+filmColumns+` `+filmsFrom+`
		WHERE f.film_id IN (SELECT film_id FROM films_likes WHERE user_id = ?)
		ORDER BY f.film_id`, userID)
}

// CreateFilm inserts the scalar fields of a film and sets its ID
func (s *SQLite) CreateFilm(ctx context.Context, film *model.Film) (err error) {
	defer s.observe("create_film", time.Now(), &err)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO films (name, name_folded, description, release_date, duration, rating_id) VALUES (?, ?, ?, ?, ?, ?)`,
		film.Name, fold(film.Name), film.Description, film.ReleaseDate.String(), film.Duration, film.Rating.ID)
	if err != nil {
		return model.NewStoreError("create_film", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.NewStoreError("create_film", err)
	}
	film.ID = id
	return nil
}

// UpdateFilm overwrites the scalar fields of a film
func (s *SQLite) UpdateFilm(ctx context.Context, film *model.Film) (err error) {
	defer s.observe("update_film", time.Now(), &err)
	res, err := s.db.ExecContext(ctx,
		`UPDATE films SET name = ?, name_folded = ?, description = ?, release_date = ?, duration = ?, rating_id = ? WHERE film_id = ?`,
		film.Name, fold(film.Name), film.Description, film.ReleaseDate.String(), film.Duration, film.Rating.ID, film.ID)
	if err != nil {
		return model.NewStoreError("update_film", err)
	}
	return s.checkAffected(res, "update_film", film.ID)
}

// DeleteFilm deletes a film, its likes and its associations
func (s *SQLite) DeleteFilm(ctx context.Context, id int64) (err error) {
	defer s.observe("delete_film", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM films WHERE film_id = ?`, id)
	if err != nil {
		return model.NewStoreError("delete_film", err)
	}
	return s.checkAffected(res, "delete_film", id)
}

func (s *SQLite) checkAffected(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if n == 0 {
		return model.NewNotFoundError("film", id)
	}
	return nil
}
