package model

import (
	"fmt"
	"strings"
)

// DefaultPopularCount is the number of films returned by a popularity query when no count is given
const DefaultPopularCount = 10

// PopularQuery selects the most liked films.
// GenreID and Year are optional hard filters.
type PopularQuery struct {
	Count   int
	GenreID *int64
	Year    *int
}

// DirectorSort is the ordering of a director's films
type DirectorSort string

const (
	SortByYear  DirectorSort = "year"
	SortByLikes DirectorSort = "likes"
)

// ParseDirectorSort parses the sortBy parameter of the director films query
func ParseDirectorSort(s string) (DirectorSort, error) {
	switch DirectorSort(strings.ToLower(strings.TrimSpace(s))) {
	case SortByYear:
		return SortByYear, nil
	case SortByLikes:
		return SortByLikes, nil
	}
	return "", NewValidationError(FieldError{Field: "sortBy", Message: fmt.Sprintf("unknown sort %q, expected year or likes", s)})
}

// SearchBy is a bit set of the fields a search matches against
type SearchBy uint8

const (
	SearchByTitle SearchBy = 1 << iota
	SearchByDirector
)

// ParseSearchBy parses a comma separated list such as "title,director"
func ParseSearchBy(s string) (SearchBy, error) {
	var by SearchBy
	for _, field := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "title":
			by |= SearchByTitle
		case "director":
			by |= SearchByDirector
		default:
			return 0, NewValidationError(FieldError{Field: "by", Message: fmt.Sprintf("unknown search field %q, expected title or director", field)})
		}
	}
	return by, nil
}

func (by SearchBy) Title() bool {
	return by&SearchByTitle != 0
}

func (by SearchBy) Director() bool {
	return by&SearchByDirector != 0
}
