// Package domain defines the shared vocabulary of the logistics core:
// the caller identity passed into every service and the error types the
// services return. Transport layers translate these errors to status codes
// without inspecting messages.
package domain

import "fmt"

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AccessError reports that the caller is not allowed to perform the
// operation on the target resource.
type AccessError struct {
	Message string
}

func (e *AccessError) Error() string { return e.Message }

// NewAccessError creates an AccessError.
func NewAccessError(message string) *AccessError {
	return &AccessError{Message: message}
}

// ConflictError reports that the target is not in a state that permits the
// operation, such as starting a trip that is not planned.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NewConflictError creates a ConflictError.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// SequenceError reports an out-of-order milestone submission. It carries the
// expected and received positions so clients can show which step is next.
type SequenceError struct {
	Expected int
	Got      int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("milestones must be completed in order: expected milestone %d, got %d", e.Expected, e.Got)
}

// NewSequenceError creates a SequenceError.
func NewSequenceError(expected, got int) *SequenceError {
	return &SequenceError{Expected: expected, Got: got}
}

// NotFoundError reports a missing resource. Lookups through an expired share
// token return this same error so token validity cannot be probed.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a NotFoundError for the named resource.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// InsufficientBalanceError reports that a fuel card cannot cover the
// requested amount.
type InsufficientBalanceError struct {
	Balance float64
	Amount  float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %.2f, need %.2f", e.Balance, e.Amount)
}

// NewInsufficientBalanceError creates an InsufficientBalanceError.
func NewInsufficientBalanceError(balance, amount float64) *InsufficientBalanceError {
	return &InsufficientBalanceError{Balance: balance, Amount: amount}
}

// ExpiredError reports that a time-bounded artifact, such as a QR token, is
// past its validity window.
type ExpiredError struct {
	Subject string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s has expired", e.Subject)
}

// NewExpiredError creates an ExpiredError.
func NewExpiredError(subject string) *ExpiredError {
	return &ExpiredError{Subject: subject}
}
