package grandpa

import "github.com/pkg/errors"

// Every error that crosses the importer's public boundary is wrapped as a
// ClientImportError carrying a category-specific message, except errors from
// CheckBlock, which returns the inner importer's error unchanged. The underlying
// category is still recoverable via errors.Cause/errors.As for callers (and
// tests) that need to branch on it.

var (
	// ErrDuplicateAuthoritySetChange is returned by (*AuthoritySet).AddPendingChange
	// when a conflicting change already exists on the same fork.
	ErrDuplicateAuthoritySetChange = errors.New("duplicate authority set change")

	// ErrMissingMedianFinalizedHeader is a fail-stop consensus-invariant
	// violation: the header at
	// min(finalized_number, median_last_finalized_number) must exist.
	ErrMissingMedianFinalizedHeader = errors.New("missing header for median last finalized block: consensus invariant violated")
)

// category identifies which failure bucket a ClientImportError belongs to.
type category string

const (
	categoryStorageRead           category = "storage_read"
	categoryInvalidChangeSequence category = "invalid_change_sequence"
	categoryInvalidJustification  category = "invalid_justification"
	categoryInnerImportFailed     category = "inner_import_failed"
	categoryFinalizer             category = "finalizer_error"
)

// ClientImportError is the error surface this component returns to its
// caller. It always carries the failing category so callers can distinguish
// "surface" errors from ones that are locally recoverable, without parsing
// message text.
type ClientImportError struct {
	Category category
	cause    error
}

func (e *ClientImportError) Error() string {
	return e.cause.Error()
}

// Unwrap lets errors.Is/As see through to the original error. errors.Cause
// stops at the ClientImportError, which has no Cause method.
func (e *ClientImportError) Unwrap() error {
	return e.cause
}

func newClientImportError(cat category, cause error) *ClientImportError {
	return &ClientImportError{Category: cat, cause: cause}
}

func storageReadError(cause error) error {
	return newClientImportError(categoryStorageRead, cause)
}

func invalidChangeSequenceError(cause error) error {
	return newClientImportError(categoryInvalidChangeSequence, cause)
}

func invalidJustificationError(cause error) error {
	return newClientImportError(categoryInvalidJustification, cause)
}

func innerImportFailedError(cause error) error {
	return newClientImportError(categoryInnerImportFailed, cause)
}

func finalizerError(cause error) error {
	return newClientImportError(categoryFinalizer, cause)
}

// IsInnerImportFailed reports whether err (or any error it wraps) came from
// the inner importer; such failures always trigger authority-set rollback.
func IsInnerImportFailed(err error) bool {
	var cie *ClientImportError
	return errors.As(err, &cie) && cie.Category == categoryInnerImportFailed
}

// IsInvalidChangeSequence reports whether err is a duplicate/conflicting
// pending-change error from AddPendingChange.
func IsInvalidChangeSequence(err error) bool {
	var cie *ClientImportError
	return errors.As(err, &cie) && cie.Category == categoryInvalidChangeSequence
}
