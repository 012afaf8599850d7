package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Empty query",
			code:      ErrCodeEmptyQuery,
			message:   "Query contains no searchable terms",
			details:   "please enter a condition",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrCodeDatabaseError,
			message:   "History store unavailable",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestEmptyQueryError_Is(t *testing.T) {
	var err error = &EmptyQueryError{Raw: "   "}
	wrapped := fmt.Errorf("resolving: %w", err)

	if !errors.Is(wrapped, ErrEmptyQuery) {
		t.Error("Expected wrapped EmptyQueryError to match ErrEmptyQuery")
	}

	var target *EmptyQueryError
	if !errors.As(wrapped, &target) {
		t.Fatal("Expected errors.As to find EmptyQueryError")
	}
	if target.Raw != "   " {
		t.Errorf("Expected raw query to be preserved, got %q", target.Raw)
	}
}

func TestUnknownCanonicalError(t *testing.T) {
	err := &UnknownCanonicalError{Name: "Hypertension"}

	if !errors.Is(err, ErrUnknownCanonical) {
		t.Error("Expected UnknownCanonicalError to match ErrUnknownCanonical")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("UnknownCanonicalError must not match ErrConfiguration")
	}
	expected := `canonical name "Hypertension" is not in the knowledge base`
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}
}

func TestConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigurationError
		expected string
	}{
		{
			name:     "Problems only",
			err:      NewConfigurationError("aliases.yaml", nil, "alias \"htn\" targets unknown canonical \"Hypertensionn\""),
			expected: `configuration error in aliases.yaml: alias "htn" targets unknown canonical "Hypertensionn"`,
		},
		{
			name:     "Cause only",
			err:      NewConfigurationError("conditions.yaml", errors.New("yaml: line 3: bad indent")),
			expected: "configuration error in conditions.yaml: yaml: line 3: bad indent",
		},
		{
			name:     "Multiple problems",
			err:      NewConfigurationError("", nil, "a", "b"),
			expected: "configuration error: a; b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.err.Error())
			}
			if !errors.Is(tt.err, ErrConfiguration) {
				t.Error("Expected ConfigurationError to match ErrConfiguration")
			}
		})
	}
}

func TestErrorCodeConstants(t *testing.T) {
	expected := map[string]string{
		ErrCodeEmptyQuery:     "EMPTY_QUERY",
		ErrCodeInvalidInput:   "INVALID_INPUT",
		ErrCodeNotFound:       "NOT_FOUND",
		ErrCodeRateLimit:      "RATE_LIMIT_EXCEEDED",
		ErrCodeDatabaseError:  "DATABASE_ERROR",
		ErrCodeInternalServer: "INTERNAL_SERVER_ERROR",
	}

	for actual, want := range expected {
		if actual != want {
			t.Errorf("Expected %s, got %s", want, actual)
		}
	}
}
