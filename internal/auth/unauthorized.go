package auth

import "github.com/timmy/gridport/internal/datastore"

// isUnauthorized wraps the datastore's 401 check so the retry decorator does
// not depend on resty response internals.
func isUnauthorized(err error) bool {
	return datastore.IsUnauthorized(err)
}
