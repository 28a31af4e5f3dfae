package inference

import (
	"errors"
)

var (
	// ErrNoCredentials indicates every credential in the pool is failed or
	// cooling down. Terminal for the current call only; the pool recovers
	// as cooldowns expire.
	ErrNoCredentials = errors.New("no available inference credentials")

	// ErrExtractionFailed indicates all retry attempts were consumed
	// without a usable result. The input stays eligible for a later run.
	ErrExtractionFailed = errors.New("extraction attempts exhausted")
)

// QuotaError is returned by a provider when a credential ran out of quota.
// The credential is cooled down for the duration parsed from Message.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	return "quota exceeded: " + e.Message
}

// AuthError is returned by a provider when a credential is rejected.
// The credential is excluded for the process lifetime.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Message
}

// InvalidInputError is returned by a provider when it rejects the request
// itself. Treated like an auth failure: the credential is excluded.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Message
}
