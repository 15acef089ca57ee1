package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline. Fatal classes abort the whole
// run; RecordCreateFailed is per-record and never aborts; the verification
// mismatch is advisory only.
var (
	// ErrImportCancelled means the operator stopped the run. It is a clean
	// stop, not a failure state.
	ErrImportCancelled = errors.New("import cancelled")

	// ErrContentUnavailable means every recovery strategy was exhausted and
	// the remaining content is insufficient to proceed.
	ErrContentUnavailable = errors.New("file content unavailable")

	// ErrMissingFieldMapping means a mapped column ended up with no field
	// identifier after provisioning.
	ErrMissingFieldMapping = errors.New("missing field mapping after provisioning")

	// ErrQuotaExceeded is returned by a session store that could not hold
	// the requested payload.
	ErrQuotaExceeded = errors.New("session storage quota exceeded")
)

// AuthenticationError is raised when credential acquisition fails or refresh
// retries are exhausted. Fatal.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// ProvisioningError is raised when table/field provisioning fails. Fatal;
// no rows are sent after it.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("schema provisioning failed at %s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// RecordCreateError is a per-record failure during batch import. Non-fatal;
// it is accumulated and the run continues.
type RecordCreateError struct {
	Status int
	Err    error
}

func (e *RecordCreateError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("record create failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("record create failed: %v", e.Err)
}

func (e *RecordCreateError) Unwrap() error {
	return e.Err
}

// VerificationMismatch reports a discrepancy between the reported created
// count and the row count observed in the destination table. Advisory.
type VerificationMismatch struct {
	Expected int
	Actual   int
}

func (e *VerificationMismatch) Error() string {
	return fmt.Sprintf("verification mismatch: expected %d rows, found %d", e.Expected, e.Actual)
}

// IsFatal reports whether an error class aborts the whole run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthenticationError
	var provErr *ProvisioningError
	switch {
	case errors.As(err, &authErr), errors.As(err, &provErr):
		return true
	case errors.Is(err, ErrContentUnavailable), errors.Is(err, ErrMissingFieldMapping):
		return true
	}
	return false
}
