package prismic

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a single-document lookup matches nothing.
	ErrNotFound = errors.New("prismic: document not found")

	// ErrForeignURL is returned when a pagination URL does not point at the
	// configured repository.
	ErrForeignURL = errors.New("prismic: url outside repository")

	// ErrNoMasterRef is returned when the API root advertises no master ref.
	ErrNoMasterRef = errors.New("prismic: api has no master ref")

	// ErrPageLoop is returned when next_page links back to a page already read.
	ErrPageLoop = errors.New("prismic: next_page revisits a page")
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prismic: %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("prismic: %s: status %d: %s", e.URL, e.StatusCode, e.Message)
}
