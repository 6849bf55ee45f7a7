package payment

import (
	"context"
	"fmt"
	"strings"

	"phlebcare-backend/pkg/apperr"
)

// MaxReferenceLen bounds the idempotency reference sent to providers.
const MaxReferenceLen = 40

// Card is raw card data passing through to a provider. It must never be
// logged or persisted.
type Card struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVV      string
}

type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

type AuthorizeRequest struct {
	Amount    float64
	Currency  string
	Reference string // sanitized idempotency reference
	Card      *Card  // raw card, or
	Token     string // multi-use token
	SaveCard  bool
	Customer  CustomerInfo
}

type AuthorizeResult struct {
	TransactionID string
	SavedToken    string // set when the provider vaulted the card
	MaskedCard    string
	// Captured is true for immediate-settlement providers where the
	// authorize call already moved the funds.
	Captured bool
}

type TokenizeResult struct {
	Token    string
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// Gateway is the uniform surface over the payment providers. Provider SDK
// error types never cross this boundary; every failure is a *ProviderError.
type Gateway interface {
	Name() string
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
	Capture(ctx context.Context, transactionID string, amount float64) error
	Release(ctx context.Context, transactionID string) error
	Void(ctx context.Context, transactionID string) error
	Tokenize(ctx context.Context, card Card) (*TokenizeResult, error)
}

// ProviderError carries the provider's raw code and message so the caller
// can log it, while the API response stays sanitized.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsAppError wraps a provider failure into the payment kind without leaking
// the raw provider payload to the client.
func (e *ProviderError) AsAppError() error {
	return apperr.Wrap(apperr.KindPayment, "Payment was declined or the provider is unavailable", e)
}

// SanitizeReference reduces ref to the alphanumeric characters providers
// accept and truncates it to MaxReferenceLen. Deterministic: the same input
// always yields the same reference.
func SanitizeReference(ref string) (string, error) {
	var b strings.Builder
	for _, r := range ref {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "", apperr.New(apperr.KindValidation, "Payment reference is empty")
	}
	if len(out) > MaxReferenceLen {
		out = out[:MaxReferenceLen]
	}
	return out, nil
}
