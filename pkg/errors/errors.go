// Package errors provides custom error types for the forkhold system.
// These errors separate fatal run-level failures from per-entry failures
// so the batch orchestrator can isolate one broken source from the rest.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the forkhold system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenRequired indicates that an API credential is required but not provided
	ErrTokenRequired = errors.New("token required")

	// ErrUpstreamUnreachable indicates that an upstream remote could not be reached
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrMergeConflict indicates that a squashed merge produced content conflicts
	ErrMergeConflict = errors.New("merge conflict")

	// ErrDirtyTree indicates the working tree has uncommitted changes where a
	// clean tree is required
	ErrDirtyTree = errors.New("working tree dirty")
)

// RegistryError represents a malformed or unreadable registry store.
// It is fatal: the run as a whole cannot proceed without a registry.
type RegistryError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *RegistryError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("registry %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("registry: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *RegistryError) Unwrap() error {
	return e.Err
}

// NewRegistryError creates a new RegistryError
func NewRegistryError(path, message string, err error) *RegistryError {
	return &RegistryError{Path: path, Message: message, Err: err}
}

// ConnectionError represents an unreachable or unauthenticated upstream
// remote. It is a per-entry failure and never aborts the batch.
type ConnectionError struct {
	Remote string
	URL    string
	Err    error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("cannot connect remote %s (%s): %v", e.Remote, e.URL, e.Err)
	}
	return fmt.Sprintf("cannot connect remote %s: %v", e.Remote, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConnectionError) Is(target error) bool {
	return target == ErrUpstreamUnreachable
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(remote, url string, err error) *ConnectionError {
	return &ConnectionError{Remote: remote, URL: url, Err: err}
}

// FetchError represents a failure to retrieve the tracking branch from a
// bound remote. Per-entry, isolated.
type FetchError struct {
	Remote string
	Branch string
	Err    error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s/%s failed: %v", e.Remote, e.Branch, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrUpstreamUnreachable
}

// NewFetchError creates a new FetchError
func NewFetchError(remote, branch string, err error) *FetchError {
	return &FetchError{Remote: remote, Branch: branch, Err: err}
}

// MergeConflictError represents a squashed subtree merge that produced
// content conflicts. The working tree is rolled back before this error is
// reported; the entry stays unresolved and the batch continues.
type MergeConflictError struct {
	Prefix string
	Remote string
	Branch string
	Err    error
}

// Error implements the error interface
func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("subtree merge of %s/%s into %s conflicted", e.Remote, e.Branch, e.Prefix)
}

// Unwrap implements errors.Unwrap
func (e *MergeConflictError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// NewMergeConflictError creates a new MergeConflictError
func NewMergeConflictError(prefix, remote, branch string, err error) *MergeConflictError {
	return &MergeConflictError{Prefix: prefix, Remote: remote, Branch: branch, Err: err}
}

// PublishError represents a failure in the final commit/push/review step.
// Per-mirror work already written to the tree is not undone by it.
type PublishError struct {
	Step   string // "checkout", "commit", "push", "pull_request"
	Branch string
	Err    error
}

// Error implements the error interface
func (e *PublishError) Error() string {
	if e.Branch != "" {
		return fmt.Sprintf("publish failed at %s (branch %s): %v", e.Step, e.Branch, e.Err)
	}
	return fmt.Sprintf("publish failed at %s: %v", e.Step, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PublishError) Unwrap() error {
	return e.Err
}

// NewPublishError creates a new PublishError
func NewPublishError(step, branch string, err error) *PublishError {
	return &PublishError{Step: step, Branch: branch, Err: err}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error from the hosting provider's REST API
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}
}

// AuthenticationError represents an authentication/authorization error
type AuthenticationError struct {
	Method  string // "token", "app_jwt", "installation"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrTokenRequired
}

// ProcessError represents a failed external command
type ProcessError struct {
	Command string
	Stderr  string
	Err     error
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q failed: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "path", "url"
	Input   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("parse error in %s %q: %s", e.Format, e.Input, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, input, message string, err error) *ParseError {
	return &ParseError{Format: format, Input: input, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict checks if an error is a merge conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrMergeConflict)
}

// IsUnreachable checks if an error indicates an unreachable upstream
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUpstreamUnreachable)
}

// IsFatal reports whether an error must abort the whole run rather than a
// single entry. Registry corruption is the only fatal class below the
// orchestrator.
func IsFatal(err error) bool {
	var re *RegistryError
	return errors.As(err, &re)
}

// Wrap helpers for common patterns

// WrapIO wraps an I/O error with operation context
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapParse wraps a parsing error with format context
func WrapParse(format, input string, err error) error {
	if err == nil {
		return nil
	}
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Format: format, Input: input, Message: message, Err: err}
}

// WrapValidation wraps an error as a validation failure
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}
