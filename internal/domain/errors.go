package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication required
	EFORBIDDEN    = "forbidden"    // Permission denied
	ENOTFOUND     = "not_found"    // Resource not found
	ECONFLICT     = "conflict"     // Resource conflict (e.g., duplicate)
	ERATELIMIT    = "rate_limit"   // Rate limit exceeded
	EINTERNAL     = "internal"     // Internal server error

	// Entitlement and referral codes
	ECREDITS      = "insufficient_credits" // Relevant credit balance is zero
	ECONSUMERACE  = "consume_failed"       // Balance raced to zero after delivery; non-fatal
	EDOCLIMIT     = "document_limit"       // Saved argument limit reached for tier
	EUNAVAILABLE  = "store_unavailable"    // Entitlement store unreachable; retryable
	EAIDOWN       = "ai_unavailable"       // AI service timeout or transport failure
	EAIEMPTY      = "ai_empty_result"      // AI response missing its required field
	ECODENOTFOUND = "code_not_found"       // Referral code does not exist
	EREDEEMED     = "already_redeemed"     // Account already redeemed a code
	ESELFREFERRAL = "self_referral"        // Account tried to redeem its own code
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "credit.consume")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
// Invariant violations (credits, referrals, limits) keep their specific
// message so the user sees the actual reason; internal errors are masked
// with a generic one.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// IsRetryable reports whether the caller may retry the failed operation.
// Only transient store and AI transport failures qualify; entitlement and
// referral invariant violations are terminal for the attempt.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case EUNAVAILABLE, EAIDOWN:
		return true
	}
	return false
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// InsufficientCredits creates an error for a zero credit balance.
func InsufficientCredits(op string, category CreditCategory) *Error {
	return &Error{
		Code:    ECREDITS,
		Op:      op,
		Message: fmt.Sprintf("No %s credits remaining. Upgrade your plan or redeem a referral code.", category),
	}
}

// StoreUnavailable creates a retryable error for an unreachable entitlement store.
func StoreUnavailable(err error, op string) *Error {
	return &Error{
		Code:    EUNAVAILABLE,
		Op:      op,
		Message: "The service is temporarily unavailable. Please try again.",
		Err:     err,
	}
}
