package core

import "errors"

// Sentinel errors for the ledger core. Layers above wrap these with
// fmt.Errorf("...: %w", err) and callers classify them with errors.Is
// or the helpers below.
var (
	// Validation errors: caller mistakes, rejected before any write.
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidReferences = errors.New("invalid transaction references")

	// Tenancy errors: cross-workspace access or misconfigured session.
	// Security-relevant; never retried automatically.
	ErrForbiddenReference = errors.New("reference outside caller workspace")
	ErrNoActiveWorkspace  = errors.New("no active workspace")

	// Conflict errors: business-rule violations surfaced for a decision.
	ErrDuplicateName = errors.New("duplicate name")
	ErrEntityInUse   = errors.New("entity is referenced by transactions")

	// ErrNotFound covers lookups that resolve to nothing within the
	// caller's workspace.
	ErrNotFound = errors.New("not found")

	// ErrCorruptTransaction means a stored transaction violates the shape
	// invariant the engine assumes. Fatal for the operation; never guessed
	// around.
	ErrCorruptTransaction = errors.New("corrupt transaction record")

	// ErrStoreBusy is a transient storage failure; callers may retry the
	// whole operation with backoff.
	ErrStoreBusy = errors.New("store busy")
)

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidReferences)
}

// IsTenancyViolation reports whether the error is security-relevant:
// a cross-workspace reference or a session without a workspace binding.
func IsTenancyViolation(err error) bool {
	return errors.Is(err, ErrForbiddenReference) ||
		errors.Is(err, ErrNoActiveWorkspace)
}

// IsConflict reports whether the error is a business-rule conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrEntityInUse)
}

// IsRetryable reports whether the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreBusy)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
