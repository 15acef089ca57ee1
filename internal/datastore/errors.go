package datastore

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the datastore (or the relay in front
// of it).
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datastore returned %d: %s", e.Status, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the datastore. A 401
// invalidates the cached bearer credential and earns exactly one retry.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// StatusOf extracts the HTTP status from an API error, 0 otherwise.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
