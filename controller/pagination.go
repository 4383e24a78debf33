package controller

import (
	"net/http"
	"strconv"
)

const defaultPageSize = 10

// pageParams reads ?page and ?limit, falling back to page 1 / limit 10.
func pageParams(req *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(req.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}

	limit, _ = strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultPageSize
	}

	return page, limit
}
