package business

import (
	"math"

	"github.com/Agurato/filmorate/internal/model"
)

// Paginater splits result lists into pages of fixed size
type Paginater[T any] struct {
	itemsPerPage int64
}

// NewPaginater instantiates a new Paginater. A non positive size means a single page.
func NewPaginater[T any](itemsPerPage int64) *Paginater[T] {
	return &Paginater[T]{
		itemsPerPage: itemsPerPage,
	}
}

// GetPage returns the items of the page, numbered from 1, and the pagination around it.
// A page past the last one is empty.
func (p *Paginater[T]) GetPage(page int64, items []T) ([]T, model.Pagination, error) {
	if page < 1 {
		return nil, model.Pagination{}, model.NewValidationError(model.FieldError{Field: "page", Message: "must be greater than 0"})
	}
	perPage := p.itemsPerPage
	if perPage <= 0 {
		perPage = int64(len(items))
	}
	pagination := model.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int64(len(items)),
	}
	if perPage > 0 {
		pagination.TotalPages = int64(math.Ceil(float64(len(items)) / float64(perPage)))
	}

	start := (page - 1) * perPage
	if start >= int64(len(items)) {
		return []T{}, pagination, nil
	}
	end := start + perPage
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end], pagination, nil
}
