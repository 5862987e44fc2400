package controller

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 30
	maxLimit     = 365
)

var errInvalidLimit = errors.New("invalid limit")

// parseLimit reads ?limit=, capped at maxLimit.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	return min(n, maxLimit), nil
}
