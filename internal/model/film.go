package model

import (
	"time"
)

// DateLayout is the layout of release dates, both on the wire and in the SQL store
const DateLayout = "2006-01-02"

// Rating is the age rating (MPA) of a film
type Rating struct {
	ID   int64  `json:"id" bson:"_id" validate:"gt=0"`
	Name string `json:"name,omitempty" bson:"name"`
}

// Genre is referenced by films, never owned by them
type Genre struct {
	ID   int64  `json:"id" bson:"_id"`
	Name string `json:"name,omitempty" bson:"name"`
}

// Director is referenced by films, never owned by them
type Director struct {
	ID   int64  `json:"id" bson:"_id"`
	Name string `json:"name,omitempty" bson:"name" validate:"notblank"`
}

// Film holds the scalar metadata of a catalog entry and its genre and director sets.
// Genres and Directors are sets: unique by ID, sorted by ID once hydrated.
type Film struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name" validate:"notblank"`
	Description string     `json:"description" validate:"max=200"`
	ReleaseDate Date       `json:"releaseDate" validate:"releasedate"`
	Duration    int        `json:"duration" validate:"gt=0"`
	Rating      Rating     `json:"mpa"`
	Genres      []Genre    `json:"genres"`
	Directors   []Director `json:"directors"`
}

// GenreIDs returns the IDs of the film genres, in the film order
func (f Film) GenreIDs() []int64 {
	ids := make([]int64, 0, len(f.Genres))
	for _, g := range f.Genres {
		ids = append(ids, g.ID)
	}
	return ids
}

// DirectorIDs returns the IDs of the film directors, in the film order
func (f Film) DirectorIDs() []int64 {
	ids := make([]int64, 0, len(f.Directors))
	for _, d := range f.Directors {
		ids = append(ids, d.ID)
	}
	return ids
}

// Date is a calendar date, serialized as "2006-01-02"
type Date struct {
	time.Time
}

// NewDate returns the Date at UTC midnight of the given day
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" formatted date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &time.ParseError{Layout: DateLayout, Value: s, Message: ": date must be a JSON string"}
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
