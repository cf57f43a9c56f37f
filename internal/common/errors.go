// Package common defines shared constants and sentinel errors used across
// the Lightning Gem server. Callers should use errors.Is to match these
// values; transport layers translate them to HTTP statuses.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Client-input errors (HTTP 400, not retried).
	ErrValidation          = errors.New("invalid request")
	ErrOutOfSync           = errors.New("gem out of sync, try refreshing")
	ErrAlreadySettled      = errors.New("payment request was already used")
	ErrInvalidPayoutAmount = errors.New("invalid payment request value")
	ErrInvalidPayoutExpiry = errors.New("invalid payment request expiry")

	// Upstream (lnd) errors. ErrUpstreamUnavailable is retryable (HTTP 503);
	// ErrUpstreamError is not (HTTP 500).
	ErrUpstreamUnavailable = errors.New("lightning node unavailable")
	ErrUpstreamError       = errors.New("lightning node error")

	// ErrPaymentError marks a failed outbound payout. It never fails the
	// ownership transfer that triggered it.
	ErrPaymentError = errors.New("payment error")

	// ErrInternal is the generic internal failure.
	ErrInternal = errors.New("internal error")
)
