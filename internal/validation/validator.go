// Package validation checks films, users and directors against the catalog rules before any write.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Agurato/filmorate/internal/model"
)

// CinemaBirthday is the earliest accepted release date
var CinemaBirthday = model.NewDate(1895, time.December, 28)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FilmValidator validates films, and the users and directors they reference, with go-playground/validator
type FilmValidator struct {
	now func() time.Time
}

// NewFilmValidator creates a FilmValidator checking release dates against the current time
func NewFilmValidator() *FilmValidator {
	return &FilmValidator{now: time.Now}
}

// NewFilmValidatorAt creates a FilmValidator for which "now" is fixed
func NewFilmValidatorAt(now time.Time) *FilmValidator {
	return &FilmValidator{now: func() time.Time { return now }}
}

// ValidateFilm returns a *model.ValidationError listing every invalid field, or nil
func (fv FilmValidator) ValidateFilm(film *model.Film) error {
	if film == nil {
		return model.NewValidationError(model.FieldError{Field: "film", Message: "is required"})
	}
	fields, err := structFields(film)
	if err != nil {
		return err
	}
	// now is per validator, so this rule has no tag
	if !film.ReleaseDate.IsZero() && film.ReleaseDate.After(fv.now()) {
		fields = append(fields, model.FieldError{Field: "releaseDate", Message: "must not be in the future"})
	}
	return fieldsError(fields)
}

// ValidateUser checks the email, login and birthday of a user
func (fv FilmValidator) ValidateUser(user *model.User) error {
	if user == nil {
		return model.NewValidationError(model.FieldError{Field: "user", Message: "is required"})
	}
	fields, err := structFields(user)
	if err != nil {
		return err
	}
	if !user.Birthday.IsZero() && user.Birthday.After(fv.now()) {
		fields = append(fields, model.FieldError{Field: "birthday", Message: "must not be in the future"})
	}
	return fieldsError(fields)
}

// ValidateDirector checks that a director has a name
func (fv FilmValidator) ValidateDirector(director *model.Director) error {
	if director == nil {
		return model.NewValidationError(model.FieldError{Field: "director", Message: "is required"})
	}
	fields, err := structFields(director)
	if err != nil {
		return err
	}
	return fieldsError(fields)
}

func structFields(s any) ([]model.FieldError, error) {
	err := getValidator().Struct(s)
	if err == nil {
		return nil, nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil, model.NewValidationError(model.FieldError{Field: "body", Message: err.Error()})
	}
	fields := make([]model.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, model.FieldError{Field: fieldPath(fe), Message: translateError(fe)})
	}
	return fields, nil
}

func fieldsError(fields []model.FieldError) error {
	if len(fields) > 0 {
		return model.NewValidationError(fields...)
	}
	return nil
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		// Dates are validated as plain time.Time values
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(model.Date); ok {
				return d.Time
			}
			return nil
		}, model.Date{})

		validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
			return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) < 0
		})
		validate.RegisterValidation("releasedate", func(fl validator.FieldLevel) bool {
			t, ok := fl.Field().Interface().(time.Time)
			if !ok || t.IsZero() {
				return false
			}
			return !t.Before(CinemaBirthday.Time)
		})
	})
	return validate
}

// fieldPath strips the root struct name: "Film.mpa.id" becomes "mpa.id"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func translateError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "nospace":
		return "must not contain whitespace"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "releasedate":
		return "must not be before " + CinemaBirthday.String()
	}
	return fe.Error()
}
