package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/filmorate/internal/business"
	"github.com/Agurato/filmorate/internal/infrastructure"
	"github.com/Agurato/filmorate/internal/model"
	"github.com/Agurato/filmorate/internal/service/server"
	"github.com/Agurato/filmorate/internal/validation"
)

// Environment variables names
const (
	EnvDBDriver     = "DB_DRIVER"
	EnvSQLitePath   = "SQLITE_PATH"
	EnvMongoURI     = "MONGO_URI"
	EnvDBName       = "DB_NAME"
	EnvListenAddr   = "LISTEN_ADDR"
	EnvLogLevel     = "LOG_LEVEL"
	EnvLogFormat    = "LOG_FORMAT"
	EnvHydrateAll   = "HYDRATE_ALL"
	EnvItemsPerPage = "ITEMS_PER_PAGE"
)

// store is what a backend provides to the business layer
type store interface {
	business.FilmQuerier
	business.ExistenceChecker
	business.ReferenceChecker
	business.FilmStorer
	business.GenreGetter
	business.DirectorGetter
	business.UserStorer
	business.ReferenceStorer
	Close() error
}

func main() {
	godotenv.Load()
	setupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open store")
	}
	defer db.Close()

	var opts []business.FilmGetterOption
	if hydrateAll(os.Getenv(EnvHydrateAll)) {
		opts = append(opts, business.WithHydration())
	}
	itemsPerPage, err := strconv.ParseInt(getEnvDefault(EnvItemsPerPage, "20"), 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read " + EnvItemsPerPage)
	}

	validator := validation.NewFilmValidator()
	hydrator := business.NewHydrator(db, db)
	fg := business.NewFilmGetter(db, db, hydrator, opts...)
	fm := business.NewFilmManager(db, db, db, validator, fg)
	um := business.NewUserManager(db, db, validator)
	rm := business.NewReferenceManager(db, validator)
	fp := business.NewPaginater[model.Film](itemsPerPage)

	srv := &http.Server{
		Addr: getEnvDefault(EnvListenAddr, ":8080"),
		Handler: server.NewServer(
			server.NewFilmHandler(fg, fm, fp),
			server.NewUserHandler(um),
			server.NewReferenceHandler(rm)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Could not shut down server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server stopped")
	}
	log.Info().Msg("Server stopped")
}

func setupLogger() {
	if os.Getenv(EnvLogFormat) == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(getEnvDefault(EnvLogLevel, "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func openStore(ctx context.Context) (store, error) {
	switch driver := getEnvDefault(EnvDBDriver, "sqlite"); driver {
	case "mongodb":
		return infrastructure.NewMongoDB(ctx, os.Getenv(EnvMongoURI), getEnvDefault(EnvDBName, "filmorate"))
	case "sqlite":
		return infrastructure.NewSQLite(ctx, getEnvDefault(EnvSQLitePath, "filmorate.db"))
	default:
		return nil, errors.New("unknown " + EnvDBDriver + " " + strconv.Quote(driver))
	}
}

// hydrateAll defaults to true when the variable is unset or unreadable
func hydrateAll(value string) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return b
}

func getEnvDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
