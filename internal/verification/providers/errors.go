package providers

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies why a comparator or the model server could not
// produce a score. Comparator decides the reading's unavailable reason from
// it, and the remote client from it decides whether a call is worth repeating.
type ErrorCategory string

const (
	// ErrorTimeout: the model server answered 504 or the call ran out of time.
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorBadData: a crop, embedding or response body is unusable.
	ErrorBadData ErrorCategory = "bad_data"
	// ErrorAuthentication: the model server rejected the bearer token.
	ErrorAuthentication ErrorCategory = "authentication"
	// ErrorProviderOutage: transport failure, 5xx, or a model still loading.
	ErrorProviderOutage ErrorCategory = "provider_outage"
	// ErrorContractMismatch: any other 4xx, usually a request shape the
	// server no longer accepts.
	ErrorContractMismatch ErrorCategory = "contract_mismatch"
	// ErrorRateLimited: 429 from the model server.
	ErrorRateLimited ErrorCategory = "rate_limited"
	// ErrorInternal: encoding or request construction failed on our side.
	ErrorInternal ErrorCategory = "internal"
)

// transient categories can succeed on a later attempt.
func (c ErrorCategory) transient() bool {
	switch c {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited:
		return true
	}
	return false
}

// ProviderError is a categorised failure from one metric or model.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s [%s]: %s", e.ProviderID, e.Category, e.Message)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
	}
}

// IsRetryable reports whether err carries a transient category.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Category.transient()
}

// GetCategory returns err's category. Uncategorised errors count as internal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

var (
	// ErrModelNotLoaded means the model behind a comparator is not serving yet.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrMissingLandmarks means a crop lacks the landmarks a geometric metric needs.
	ErrMissingLandmarks = errors.New("face crop has no usable landmarks")
)
