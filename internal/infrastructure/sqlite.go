package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/Agurato/filmorate/internal/metrics"
	"github.com/Agurato/filmorate/internal/model"
)

const sqliteBackend = "sqlite"

// SQLite is the relational film store.
// Foreign keys are enforced: deleting a film deletes its likes and associations.
type SQLite struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ratings (
		rating_id   INTEGER PRIMARY KEY,
		rating_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		genre_id   INTEGER PRIMARY KEY,
		genre_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS directors (
		director_id          INTEGER PRIMARY KEY AUTOINCREMENT,
		director_name        TEXT NOT NULL,
		director_name_folded TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id  INTEGER PRIMARY KEY AUTOINCREMENT,
		email    TEXT NOT NULL,
		login    TEXT NOT NULL,
		name     TEXT NOT NULL DEFAULT '',
		birthday TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS films (
		film_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		name         TEXT NOT NULL,
		name_folded  TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		release_date TEXT NOT NULL,
		duration     INTEGER NOT NULL CHECK (duration > 0),
		rating_id    INTEGER NOT NULL REFERENCES ratings (rating_id)
	)`,
	`CREATE TABLE IF NOT EXISTS films_genres (
		film_id  INTEGER NOT NULL REFERENCES films (film_id) ON DELETE CASCADE,
		genre_id INTEGER NOT NULL REFERENCES genres (genre_id) ON DELETE CASCADE,
		PRIMARY KEY (film_id, genre_id)
	)`,
	`CREATE TABLE IF NOT EXISTS film_director (
		film_id     INTEGER NOT NULL REFERENCES films (film_id) ON DELETE CASCADE,
		director_id INTEGER NOT NULL REFERENCES directors (director_id) ON DELETE CASCADE,
		PRIMARY KEY (film_id, director_id)
	)`,
	`CREATE TABLE IF NOT EXISTS films_likes (
		film_id INTEGER NOT NULL REFERENCES films (film_id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, film_id)
	)`,
	`CREATE INDEX IF NOT EXISTS films_likes_film_idx ON films_likes (film_id)`,
	`CREATE INDEX IF NOT EXISTS film_director_director_idx ON film_director (director_id)`,
	`CREATE INDEX IF NOT EXISTS films_genres_genre_idx ON films_genres (genre_id)`,
	`INSERT OR IGNORE INTO ratings (rating_id, rating_name) VALUES
		(1, 'G'), (2, 'PG'), (3, 'PG-13'), (4, 'R'), (5, 'NC-17')`,
	`INSERT OR IGNORE INTO genres (genre_id, genre_name) VALUES
		(1, 'Comedy'), (2, 'Drama'), (3, 'Cartoon'), (4, 'Thriller'), (5, 'Documentary'), (6, 'Action')`,
}

// NewSQLite opens the database at path (":memory:" for an in-memory one) and creates the schema
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database %q: %w", path, err)
	}
	if strings.HasPrefix(path, ":memory:") {
		// Every connection to ":memory:" is a distinct database
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Using sqlite database")
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return model.NewStoreError("migrate", err)
		}
	}
	return nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// observe records the metrics of an operation and logs its store failures
func (s *SQLite) observe(op string, start time.Time, err *error) {
	metrics.ObserveQuery(sqliteBackend, op, start, err)
	if *err != nil && errors.Is(*err, model.ErrStore) {
		log.Error().Err(*err).Str("op", op).Msg("SQLite operation failed")
	}
}

// fold returns the case folded form of s, used for case-insensitive matching
func fold(s string) string {
	return cases.Fold().String(s)
}

// IsFilmPresent checks if a film with this ID exists
func (s *SQLite) IsFilmPresent(ctx context.Context, id int64) (present bool, err error) {
	defer s.observe("is_film_present", time.Now(), &err)
	return s.exists(ctx, "is_film_present", `SELECT EXISTS (SELECT 1 FROM films WHERE film_id = ?)`, id)
}

// IsUserPresent checks if a user with this ID exists
func (s *SQLite) IsUserPresent(ctx context.Context, id int64) (present bool, err error) {
	defer s.observe("is_user_present", time.Now(), &err)
	return s.exists(ctx, "is_user_present", `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = ?)`, id)
}

// IsRatingPresent checks if an age rating with this ID exists
func (s *SQLite) IsRatingPresent(ctx context.Context, id int64) (present bool, err error) {
	defer s.observe("is_rating_present", time.Now(), &err)
	return s.exists(ctx, "is_rating_present", `SELECT EXISTS (SELECT 1 FROM ratings WHERE rating_id = ?)`, id)
}

// MissingGenres returns the IDs that do not denote a genre
func (s *SQLite) MissingGenres(ctx context.Context, ids ...int64) (missing []int64, err error) {
	defer s.observe("missing_genres", time.Now(), &err)
	return s.missing(ctx, "missing_genres", "genres", "genre_id", ids)
}

// MissingDirectors returns the IDs that do not denote a director
func (s *SQLite) MissingDirectors(ctx context.Context, ids ...int64) (missing []int64, err error) {
	defer s.observe("missing_directors", time.Now(), &err)
	return s.missing(ctx, "missing_directors", "directors", "director_id", ids)
}

func (s *SQLite) missing(ctx context.Context, op, table, column string, ids []int64) ([]int64, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return []int64{}, nil
	}
	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s WHERE %[2]s IN (%[3]s)`, table, column, inPlaceholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, model.NewStoreError(op, err)
	}
	defer rows.Close()
	found := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, model.NewStoreError(op, err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError(op, err)
	}
	return lo.Without(ids, found...), nil
}

func (s *SQLite) exists(ctx context.Context, op, query string, id int64) (bool, error) {
	var present bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&present); err != nil {
		return false, model.NewStoreError(op, err)
	}
	return present, nil
}

// inPlaceholders returns "?, ?, ?" for n arguments
func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
