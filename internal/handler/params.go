package handler

import (
	"errors"
	"strconv"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/labstack/echo/v4"
)

func parseIntParam(s string, out *int32) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return false, errors.New("invalid integer")
	}
	*out = int32(v)
	return true, nil
}

// parseID reads a positive integer path parameter. On failure the 400 response has
// already been written and the returned error must be passed back to echo.
func parseID(c echo.Context, name string) (int32, bool, error) {
	var id int32
	if ok, err := parseIntParam(c.Param(name), &id); !ok || err != nil || id <= 0 {
		return 0, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "must be a positive integer"},
		})
	}
	return id, true, nil
}

// parsePagination reads page and per_page. Sizes above the maximum are capped by the
// services; non-numeric or non-positive values are rejected with a 400 as in parseID.
func parsePagination(c echo.Context) (domain.Pagination, bool, error) {
	var page domain.Pagination
	for _, p := range []struct {
		name string
		dst  *int32
	}{
		{"page", &page.Page},
		{"per_page", &page.PerPage},
	} {
		ok, err := parseIntParam(c.QueryParam(p.name), p.dst)
		if err != nil || (ok && *p.dst < 1) {
			return page, false, NewValidationError(c, "Invalid "+p.name+" (must be positive integer)", nil)
		}
	}
	return page, true, nil
}

// queryParams flattens the query string keeping the first value of each key
func queryParams(c echo.Context) map[string]string {
	params := make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
