package arxiv

import (
	"errors"
	"fmt"
)

// Common errors returned by the arXiv client.
var (
	// ErrRateLimited indicates the API asked us to slow down.
	ErrRateLimited = errors.New("arXiv rate limit exceeded")

	// ErrAPIError indicates a general API error.
	ErrAPIError = errors.New("arXiv API error")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with arXiv")

	// ErrInvalidResponse indicates a response that is not a parseable Atom feed.
	ErrInvalidResponse = errors.New("invalid response from arXiv")
)

// APIError represents an error reported by the arXiv API, either as an HTTP
// status or as an error entry inside the feed.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arXiv API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrAPIError) match any *APIError.
func (e *APIError) Unwrap() error {
	return ErrAPIError
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 503
	}
	return false
}
