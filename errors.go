package quota

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound        = errors.New("quota: not found")
	ErrAlreadyExists   = errors.New("quota: already exists")
	ErrInvalidArgument = errors.New("quota: invalid argument")
	ErrInternal        = errors.New("quota: internal failure")

	// Account errors
	ErrAccountNotFound  = errors.New("quota: account not found")
	ErrLedgerNotFound   = errors.New("quota: ledger not found")
	ErrPermissionDenied = errors.New("quota: subscription does not permit access")

	// Quota errors
	ErrQuotaExceeded = errors.New("quota: usage limit reached")

	// Provider errors
	ErrProviderPayload = errors.New("quota: malformed provider payload")
	ErrUnknownPlan     = errors.New("quota: unknown provider plan")

	// Resolver errors
	ErrNoResolver    = errors.New("quota: no resolver configured")
	ErrResolveFailed = errors.New("quota: vision resolve failed")

	// Store errors
	ErrStoreNotReady     = errors.New("quota: store not ready")
	ErrStoreClosed       = errors.New("quota: store is closed")
	ErrStoreTimeout      = errors.New("quota: store call timed out")
	ErrTransactionFailed = errors.New("quota: transaction failed")
	ErrMigrationFailed   = errors.New("quota: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("quota: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidArgument }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrLedgerNotFound)
}

// IsQuotaError returns true if the error is a quota denial. These are
// expected, user-visible outcomes, not bugs.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrStoreTimeout) ||
		errors.Is(err, ErrTransactionFailed)
}

// Code maps an error onto the wire-level taxonomy consumed by the
// extension: invalid-argument, not-found, resource-exhausted,
// permission-denied, or internal. Callers render "upgrade your plan" for
// resource-exhausted and "something went wrong" for internal.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrProviderPayload) || errors.Is(err, ErrUnknownPlan):
		return "invalid-argument"
	case IsNotFound(err):
		return "not-found"
	case IsQuotaError(err):
		return "resource-exhausted"
	case errors.Is(err, ErrPermissionDenied):
		return "permission-denied"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "invalid-argument":
		return http.StatusBadRequest
	case "not-found":
		return http.StatusNotFound
	case "resource-exhausted":
		return http.StatusTooManyRequests
	case "permission-denied":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
