// Package apperr defines the error taxonomy shared by the store, the batch
// processor, the response assembler and the HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Issue is a single validation failure on an inbound or outbound value
type Issue struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError represents malformed or out-of-schema client input
type ValidationError struct {
	Issues []Issue
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError creates a ValidationError with a single issue
func NewValidationError(path, rule, message string) error {
	return &ValidationError{Issues: []Issue{{Path: path, Rule: rule, Message: message}}}
}

// NotFoundError represents a referenced id that does not exist
type NotFoundError struct {
	Entity string
	ID     int64
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

// ConflictError represents a storage constraint violation (unique, foreign key, check)
type ConflictError struct {
	Constraint string
	Detail     string
	Err        error
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("constraint %s violated: %s", e.Constraint, e.Detail)
	}
	return fmt.Sprintf("constraint %s violated", e.Constraint)
}

// Unwrap returns the underlying error
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// SerializationError is raised when the storage layer aborts a serializable
// transaction because of a concurrent conflicting transaction. Callers may retry.
type SerializationError struct {
	Err error
}

// Error implements the error interface
func (e *SerializationError) Error() string {
	return fmt.Sprintf("transaction conflict, retry the request: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Retryable reports that the whole batch can be resubmitted
func (e *SerializationError) Retryable() bool {
	return true
}

// MissingRelationError means a relation expected on an assembled graph was never loaded
type MissingRelationError struct {
	Entity   string
	Relation string
}

// Error implements the error interface
func (e *MissingRelationError) Error() string {
	return fmt.Sprintf("relation %q missing on %s", e.Relation, e.Entity)
}

// UnableToCreateInstanceError means a freshly inserted row could not be read back
type UnableToCreateInstanceError struct {
	Entity string
	Err    error
}

// Error implements the error interface
func (e *UnableToCreateInstanceError) Error() string {
	return fmt.Sprintf("unable to create %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error
func (e *UnableToCreateInstanceError) Unwrap() error {
	return e.Err
}

// UnableToUpdateInstanceError means an updated row could not be read back
type UnableToUpdateInstanceError struct {
	Entity string
	ID     int64
	Err    error
}

// Error implements the error interface
func (e *UnableToUpdateInstanceError) Error() string {
	return fmt.Sprintf("unable to update %s %d: %v", e.Entity, e.ID, e.Err)
}

// Unwrap returns the underlying error
func (e *UnableToUpdateInstanceError) Unwrap() error {
	return e.Err
}

// ResponseShapeError means an outbound body failed its own schema
type ResponseShapeError struct {
	Body   string
	Issues []Issue
}

// Error implements the error interface
func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s response violates its schema: %s", e.Body, (&ValidationError{Issues: e.Issues}).Error())
}

// IsNotFound reports whether err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInternal reports whether err belongs to the programming-error class
func IsInternal(err error) bool {
	var (
		missing *MissingRelationError
		create  *UnableToCreateInstanceError
		update  *UnableToUpdateInstanceError
		shape   *ResponseShapeError
	)
	return errors.As(err, &missing) || errors.As(err, &create) ||
		errors.As(err, &update) || errors.As(err, &shape)
}
