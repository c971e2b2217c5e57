package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeInvalidConfiguration ErrorType = "invalid_configuration"
	ErrorTypeIndexUnavailable     ErrorType = "index_unavailable"
	ErrorTypeRateLimit            ErrorType = "rate_limit"
	ErrorTypeUnauthorized         ErrorType = "unauthorized"
	ErrorTypeGenerationDegraded   ErrorType = "generation_degraded"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeValidation           ErrorType = "validation"
	ErrorTypeInternal             ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns a copy of the error with the detail attached. The
// receiver is left untouched so shared sentinel errors stay clean.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Configuration errors: rejected immediately, nothing partially applied
	ErrInvalidChunkParams = NewDomainError(ErrorTypeInvalidConfiguration, "chunk overlap must be smaller than chunk size", nil)
	ErrMissingIngestBody  = NewDomainError(ErrorTypeInvalidConfiguration, "ingest requires documents or a path", nil)

	// Vector store errors: the whole request fails, no partial upsert is acknowledged
	ErrIndexUnavailable = NewDomainError(ErrorTypeIndexUnavailable, "vector store unreachable", nil)

	// Rate limiting: recoverable by the caller after waiting
	ErrRateLimited = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)

	// Authorization errors
	ErrUnauthorized  = NewDomainError(ErrorTypeUnauthorized, "invalid or missing API key", nil)
	ErrMissingAPIKey = NewDomainError(ErrorTypeUnauthorized, "API key header required", nil)

	// Generation degradation: triggers the extractive fallback, never surfaced
	// to the end user as a failure
	ErrGenerationDegraded = NewDomainError(ErrorTypeGenerationDegraded, "generation backend degraded", nil)

	// Not found errors
	ErrProductNotFound = NewDomainError(ErrorTypeNotFound, "product not found", nil)

	// Validation errors
	ErrEmptyQuestion = NewDomainError(ErrorTypeValidation, "question cannot be empty", nil)
	ErrInvalidTopK   = NewDomainError(ErrorTypeValidation, "top_k must be positive", nil)

	// Internal errors
	ErrInternal        = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrCatalogUnloaded = NewDomainError(ErrorTypeInternal, "product catalog not loaded", nil)
)

// Error type checking helper functions

// IsInvalidConfigurationError checks if an error is an invalid configuration error
func IsInvalidConfigurationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInvalidConfiguration
	}
	return false
}

// IsIndexUnavailableError checks if an error is an index unavailable error
func IsIndexUnavailableError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeIndexUnavailable
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeRateLimit
	}
	return false
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthorized
	}
	return false
}

// IsGenerationDegradedError checks if an error is a generation degraded error
func IsGenerationDegradedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeGenerationDegraded
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapIndexUnavailable wraps an error as an index unavailable error
func WrapIndexUnavailable(message string, err error) error {
	return NewDomainError(ErrorTypeIndexUnavailable, message, err)
}
