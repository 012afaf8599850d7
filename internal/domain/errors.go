package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes surfaced by the transports
const (
	ErrCodeEmptyQuery     = "EMPTY_QUERY"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeDatabaseError  = "DATABASE_ERROR"
	ErrCodeUnavailable    = "SERVICE_UNAVAILABLE"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrEmptyQuery       = errors.New("empty query")
	ErrConfiguration    = errors.New("invalid knowledge configuration")
	ErrUnknownCanonical = errors.New("unknown canonical name")
)

// EmptyQueryError is returned when normalization leaves no tokens.
type EmptyQueryError struct {
	Raw string
}

func (e *EmptyQueryError) Error() string {
	return "query contains no searchable terms; please enter a condition"
}

// Is makes errors.Is(err, ErrEmptyQuery) succeed.
func (e *EmptyQueryError) Is(target error) bool {
	return target == ErrEmptyQuery
}

// UnknownCanonicalError is returned when a canonical name is absent from the knowledge base.
type UnknownCanonicalError struct {
	Name string
}

func (e *UnknownCanonicalError) Error() string {
	return fmt.Sprintf("canonical name %q is not in the knowledge base", e.Name)
}

// Is makes errors.Is(err, ErrUnknownCanonical) succeed.
func (e *UnknownCanonicalError) Is(target error) bool {
	return target == ErrUnknownCanonical
}

// ConfigurationError collects every consistency problem found while loading
// knowledge data. It is only ever produced at startup.
type ConfigurationError struct {
	Source   string
	Problems []string
	Cause    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if len(e.Problems) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, "; "))
	}
	return b.String()
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Unwrap returns the underlying decode or read failure, if any.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a ConfigurationError for source.
func NewConfigurationError(source string, cause error, problems ...string) *ConfigurationError {
	return &ConfigurationError{
		Source:   source,
		Problems: problems,
		Cause:    cause,
	}
}
