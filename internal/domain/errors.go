package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")

	// ErrWorkflowFailed indicates that a Temporal workflow failed.
	ErrWorkflowFailed = errors.New("workflow failed")
)

// Harvest error kinds. Every failure raised by the harvest pipeline or the
// related-article grapher carries exactly one of these as its Kind.
var (
	// ErrConnection covers any failure reaching or parsing a PubMed response.
	ErrConnection = errors.New("pubmed connection error")

	// ErrPersistence covers store failures other than a duplicate edge.
	ErrPersistence = errors.New("persistence error")

	// ErrDuplicateEdge indicates the canonical link pair is already stored.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrStructural indicates an upstream document is missing mandatory structure.
	ErrStructural = errors.New("structural error")
)

// HarvestError wraps a harvest failure with its kind and the failing operation.
type HarvestError struct {
	Op   string // Operation that failed
	Kind error  // One of ErrConnection, ErrPersistence, ErrDuplicateEdge, ErrStructural
	ID   string // PubMed id or link pair (if applicable)
	Err  error  // Underlying error
}

// Error returns the error message.
func (e *HarvestError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.ID != "" {
		msg += fmt.Sprintf(" [%s]", e.ID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *HarvestError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *HarvestError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewConnectionError wraps a transport or response parsing failure.
func NewConnectionError(op string, err error) *HarvestError {
	return &HarvestError{Op: op, Kind: ErrConnection, Err: err}
}

// NewPersistenceError wraps a store failure for the given id.
func NewPersistenceError(op, id string, err error) *HarvestError {
	return &HarvestError{Op: op, Kind: ErrPersistence, ID: id, Err: err}
}

// NewDuplicateEdgeError reports that the link (low, high) already exists.
func NewDuplicateEdgeError(low, high string) *HarvestError {
	return &HarvestError{
		Op:   "create link",
		Kind: ErrDuplicateEdge,
		ID:   low + "-" + high,
		Err:  fmt.Errorf("pubmed id %s already has a link to pubmed id %s", low, high),
	}
}

// NewStructuralError reports a document that lacks mandatory structure.
func NewStructuralError(op, id, message string) *HarvestError {
	return &HarvestError{Op: op, Kind: ErrStructural, ID: id, Err: errors.New(message)}
}

// ErrorKind returns the harvest kind of err, or nil when err is not a harvest error.
func ErrorKind(err error) error {
	var he *HarvestError
	if errors.As(err, &he) {
		return he.Kind
	}
	return nil
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// RateLimitError provides details about a rate limit error.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		Source:     source,
		RetryAfter: retryAfter,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
