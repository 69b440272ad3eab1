package service

import (
	"errors"
	"fmt"
)

var (
	ErrPaymentRequired    = errors.New("payment required")
	ErrCreditsExhausted   = errors.New("no credits remaining")
	ErrGenerationInvalid  = errors.New("generated document is invalid")
	ErrUnauthorizedOrigin = errors.New("unauthorized origin")
	ErrHoneypot           = errors.New("honeypot field filled")
)

// ValidationError rejects a request before any store or provider is touched.
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

type VerificationKind string

const (
	KindMissingFields     VerificationKind = "missing_fields"
	KindSignatureMismatch VerificationKind = "signature_mismatch"
	KindProviderRejected  VerificationKind = "provider_rejected"
	KindTransport         VerificationKind = "transport"
	KindReplay            VerificationKind = "replay"
)

// VerificationError explains why a payment claim was not accepted. Reason is
// safe to show to the payer; Err keeps the underlying cause for logs.
type VerificationError struct {
	Kind   VerificationKind
	Status string
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed (%s): %s", e.Kind, e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// UpstreamError wraps a transport or API failure of an external collaborator.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
