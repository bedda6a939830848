package shared

import (
	"net/http"
	"strconv"
	"strings"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page   int
	Limit  int
	Search string

	// Entity specific filters
	CompanyID  int64
	CategoryID *int64
	Status     string
}

// FiltersFromRequest reads page, per_page, search, category and status query parameters.
func FiltersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	f := ListFilters{Page: DefaultPage, Limit: DefaultLimit}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		f.Limit = v
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	f.Status = strings.TrimSpace(q.Get("status"))
	if v, err := strconv.ParseInt(q.Get("category"), 10, 64); err == nil && v > 0 {
		f.CategoryID = &v
	}
	return f
}
