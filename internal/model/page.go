package model

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize fills defaults for missing values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// Skip is (page-1)*limit for page > 0, otherwise 0.
func (p PageRequest) Skip() int {
	if p.Page > 0 {
		return (p.Page - 1) * p.Limit
	}
	return 0
}

type Page[T any] struct {
	Data        []T `json:"data"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
}

func NewPage[T any](data []T, total int, req PageRequest) Page[T] {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return Page[T]{Data: data, TotalItems: total, TotalPages: pages, CurrentPage: req.Page}
}
