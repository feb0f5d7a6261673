// Package fetcher retrieves form pages over HTTP.
package fetcher

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// Fetcher supplies the raw HTML of a form page.
type Fetcher interface {
	// FetchPage returns the decoded page text for url.
	FetchPage(ctx context.Context, url string) (string, error)
}

// ErrRestrictedForm is returned when the form requires sign-in or the
// server refuses access.
var ErrRestrictedForm = eris.New("fetch: form is restricted or requires sign-in")

// ErrFormClosed is returned when the form no longer accepts responses.
var ErrFormClosed = eris.New("fetch: form is no longer accepting responses")

// StatusError reports a non-retryable HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d from %s", e.StatusCode, e.URL)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}
