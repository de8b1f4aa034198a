package provider

import (
	"errors"
	"fmt"
	"net/http"

	"creditlens/pkg/platform/circuit"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the bureau took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the bureau returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the bureau is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorContractMismatch indicates the bureau API changed under us
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the bureau holds no file for the applicant
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInvalidRequest indicates the applicant details were rejected before the call
	ErrorInvalidRequest ErrorCategory = "invalid_request"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps bureau failures with normalized categorization
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("bureau %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("bureau %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized provider error
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// CategoryForStatus maps an HTTP status from a bureau API onto the taxonomy.
func CategoryForStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrorAuthentication
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrorTimeout
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrorInvalidRequest
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorContractMismatch
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// BreakerOutcome classifies a finished bureau call for the circuit breaker.
// Timeouts and outages count as failures. Internal errors, which include a
// caller cancelling, are ignored. Any other answer shows the bureau is up.
func BreakerOutcome(err error) circuit.Outcome {
	if err == nil {
		return circuit.OutcomeSuccess
	}
	switch GetCategory(err) {
	case ErrorTimeout, ErrorProviderOutage:
		return circuit.OutcomeFailure
	case ErrorInternal:
		return circuit.OutcomeIgnored
	default:
		return circuit.OutcomeSuccess
	}
}
