// services/errors.go
package services

import (
	"errors"
	"fmt"

	"spinwin/models"
)

var (
	ErrQuotaExceeded     = errors.New("daily spin limit reached")
	ErrUnknownRestaurant = errors.New("unknown restaurant")
	ErrNoOffers          = errors.New("restaurant has no offers")
	ErrNoOffer           = errors.New("no current offer to claim")
	ErrBusy              = errors.New("another spin or claim is in progress")
	ErrNotAuthenticated  = errors.New("login required")
	ErrInvalidTransition = errors.New("invalid auth flow transition")
	ErrResendThrottled   = errors.New("OTP was sent recently, try again shortly")
	ErrTokenInvalid      = errors.New("bearer token invalid or expired")
	ErrSchemaMismatch    = errors.New("stored record has an unsupported schema version")
	ErrCorruptRecord     = errors.New("stored record cannot be decoded")
)

// QuotaExceededError carries the quota that blocked the spin.
type QuotaExceededError struct {
	Quota models.SpinQuota
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily spin limit reached (%d/%d) for %s", e.Quota.SpinsUsed, models.DailySpinLimit, e.Quota.RestaurantID)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// AuthError is an invalid-credentials or signup-conflict failure. Message is
// shown to the user as is.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// OTPInvalidError is a malformed code or a backend rejection of the code.
type OTPInvalidError struct {
	Message string
	Err     error
}

func (e *OTPInvalidError) Error() string { return e.Message }

func (e *OTPInvalidError) Unwrap() error { return e.Err }

// NetworkError is a transport-level failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx backend response. Detail is the backend's message.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// ValidationError is bad user input caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// unreadableRecord reports a stored record that exists but cannot be used.
// Such records are treated as absent.
func unreadableRecord(err error) bool {
	return errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrCorruptRecord)
}

// userMessage picks the text shown to a user for a backend failure.
func userMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Network error, please try again"
	}
	return fallback
}
