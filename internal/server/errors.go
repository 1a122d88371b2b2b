package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/export"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrConflict indicates the request cannot be served in the current crawl state
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

// errCrawlActive is returned by operations that must not overlap a crawl.
var errCrawlActive = &ErrConflict{Message: "a crawl is running; stop it first"}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var conflictErr *ErrConflict
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr),
		errors.Is(err, crawler.ErrAlreadyRunning),
		errors.Is(err, crawler.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, export.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
