package repository

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/user/polite-crawler/internal/document"
)

// Error kinds surfaced by a crawl step. Callers classify with errors.Is;
// wrapped causes stay reachable through the chain.
var (
	ErrTransport         = errors.New("transport failure")
	ErrRedirectExhausted = errors.New("exhausted redirects")
	ErrMalformedResponse = errors.New("malformed response")
	ErrPolitenessDenied  = errors.New("denied by robots.txt")
	ErrSelector          = document.ErrSelector
	ErrParse             = document.ErrParse
	ErrExtract           = errors.New("extraction failed")
	ErrStorage           = errors.New("storage failure")
	ErrFrontierEmpty     = errors.New("frontier is empty")
)

// StatusError is a terminal non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err carries a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
