package common

import "net/http"

// Pagination describes the page window echoed back to clients.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
}

// ParsePagination reads page/perPage query parameters with sane floors.
func ParsePagination(r *http.Request, defaultPerPage int) (int, int) {
	page := AtoiDefault(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage := AtoiDefault(r.URL.Query().Get("perPage"), defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}
