package business

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/filmorate/internal/model"
)

// UserStorer writes users and their likes.
// Liking a film twice is not an error and counts once.
type UserStorer interface {
	CreateUser(ctx context.Context, user *model.User) error
	AddLike(ctx context.Context, like model.Like) error
	RemoveLike(ctx context.Context, like model.Like) error
}

type UserValidator interface {
	ValidateUser(user *model.User) error
}

// UserManager registers users and records the likes the rankings are built on
type UserManager struct {
	UserStorer
	ExistenceChecker
	UserValidator
}

func NewUserManager(us UserStorer, ec ExistenceChecker, uv UserValidator) *UserManager {
	return &UserManager{
		UserStorer:       us,
		ExistenceChecker: ec,
		UserValidator:    uv,
	}
}

// CreateUser checks the user fields and adds it to the database.
// A user without a name is named after its login.
func (um UserManager) CreateUser(ctx context.Context, user *model.User) error {
	if err := um.UserValidator.ValidateUser(user); err != nil {
		return err
	}
	if user.Name == "" {
		user.Name = user.Login
	}
	if err := um.UserStorer.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("could not create user %q: %w", user.Login, err)
	}
	log.Info().Int64("userID", user.ID).Str("login", user.Login).Msg("User created")
	return nil
}

// AddLike records that a user likes a film
func (um UserManager) AddLike(ctx context.Context, filmID, userID int64) error {
	if err := um.checkLike(ctx, filmID, userID); err != nil {
		return err
	}
	if err := um.UserStorer.AddLike(ctx, model.Like{UserID: userID, FilmID: filmID}); err != nil {
		return fmt.Errorf("could not add like of user %d on film %d: %w", userID, filmID, err)
	}
	log.Debug().Int64("filmID", filmID).Int64("userID", userID).Msg("Like added")
	return nil
}

// RemoveLike removes the like of a user on a film. Removing an absent like is a no-op.
func (um UserManager) RemoveLike(ctx context.Context, filmID, userID int64) error {
	if err := um.checkLike(ctx, filmID, userID); err != nil {
		return err
	}
	if err := um.UserStorer.RemoveLike(ctx, model.Like{UserID: userID, FilmID: filmID}); err != nil {
		return fmt.Errorf("could not remove like of user %d on film %d: %w", userID, filmID, err)
	}
	log.Debug().Int64("filmID", filmID).Int64("userID", userID).Msg("Like removed")
	return nil
}

func (um UserManager) checkLike(ctx context.Context, filmID, userID int64) error {
	if err := checkFilmExists(ctx, um.ExistenceChecker, filmID); err != nil {
		return err
	}
	return checkUserExists(ctx, um.ExistenceChecker, userID)
}
