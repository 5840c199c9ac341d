package model

// Pagination describes a page of a result list
type Pagination struct {
	Page       int64
	PerPage    int64
	TotalItems int64
	TotalPages int64
}
