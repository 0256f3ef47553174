package ecode

import (
	"errors"
	"fmt"
)

// Sentinel errors for the management core's failure taxonomy. Callers match
// with errors.Is; the concrete error types below carry the detail.
var (
	// ErrPolicyRejected marks operations vetoed by a management policy
	// provider. Always recoverable; the provider's message is surfaced
	// verbatim.
	ErrPolicyRejected = errors.New("management policy prohibited")

	// ErrVersionConflict marks installs rejected by version or priority
	// arbitration: a downgrade from a non-unpacked source, or a lower
	// priority source trying to override a higher-priority one.
	ErrVersionConflict = errors.New("version conflict")

	// ErrMalformedCandidate marks structurally invalid install requests.
	// No state is mutated for these.
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrValidationFailure marks a package the validator collaborator could
	// not accept. The pending slot is cleared and never retried.
	ErrValidationFailure = errors.New("package validation failed")

	// ErrNotInstalled marks operations against an id with no live record.
	ErrNotInstalled = errors.New("extension is not installed")
)

// PolicyError wraps a provider's veto with the provider's own message.
type PolicyError struct {
	ExtensionID string
	Message     string
}

func (e *PolicyError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("extension %s: %s", e.ExtensionID, ErrPolicyRejected)
	}
	return fmt.Sprintf("extension %s: %s: %s", e.ExtensionID, ErrPolicyRejected, e.Message)
}

func (e *PolicyError) Unwrap() error { return ErrPolicyRejected }

// NewPolicyError builds a PolicyError for the given extension.
func NewPolicyError(id, message string) *PolicyError {
	return &PolicyError{ExtensionID: id, Message: message}
}

// ConflictError describes why priority or version arbitration rejected an
// install candidate.
type ConflictError struct {
	ExtensionID string
	Detail      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("extension %s: %s: %s", e.ExtensionID, ErrVersionConflict, e.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }

// NewConflictError builds a ConflictError with a formatted detail message.
func NewConflictError(id, format string, args ...any) *ConflictError {
	return &ConflictError{ExtensionID: id, Detail: fmt.Sprintf(format, args...)}
}

// CandidateError describes a structurally invalid install request.
type CandidateError struct {
	ExtensionID string
	Cause       error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("extension %q: %s: %v", e.ExtensionID, ErrMalformedCandidate, e.Cause)
}

func (e *CandidateError) Unwrap() error { return ErrMalformedCandidate }

// NewCandidateError wraps a validation failure for a candidate descriptor.
func NewCandidateError(id string, cause error) *CandidateError {
	return &CandidateError{ExtensionID: id, Cause: cause}
}

// ValidationError wraps a failure reported by the package validator.
type ValidationError struct {
	ExtensionID string
	Path        string
	Cause       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("extension %s: %s: %v", e.ExtensionID, ErrValidationFailure, e.Cause)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailure }

// NewValidationError wraps a validator failure for the given package.
func NewValidationError(id, path string, cause error) *ValidationError {
	return &ValidationError{ExtensionID: id, Path: path, Cause: cause}
}

// NotInstalled builds the standard not-installed error for an id.
func NotInstalled(id string) error {
	return fmt.Errorf("extension %s: %w", id, ErrNotInstalled)
}
