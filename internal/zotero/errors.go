package zotero

import (
	"errors"
	"fmt"
)

// Common errors returned by the Zotero client.
var (
	// ErrNotFound indicates the item, collection or library was not found.
	ErrNotFound = errors.New("not found in Zotero")

	// ErrAuthError indicates a missing or invalid API key, or a key without
	// access to the group.
	ErrAuthError = errors.New("Zotero authentication error")

	// ErrRateLimited indicates the server asked us to back off.
	ErrRateLimited = errors.New("Zotero rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Zotero")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from Zotero")
)

// APIError represents an error status from the Zotero Web API.
type APIError struct {
	StatusCode int
	Message    string
	ItemKey    string // For context in item-related errors
}

func (e *APIError) Error() string {
	if e.ItemKey != "" {
		return fmt.Sprintf("Zotero API error (status %d): %s (item: %s)", e.StatusCode, e.Message, e.ItemKey)
	}
	return fmt.Sprintf("Zotero API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
