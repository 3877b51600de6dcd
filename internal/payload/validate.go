package payload

import (
	"fmt"
	"time"
)

// Policy bounds a single transaction. Values come from the runtime settings
// snapshot; the validator itself is a pure function.
type Policy struct {
	MaxFare   float64       // Per-transaction fare ceiling, currency units.
	Freshness time.Duration // Symmetric window around server time for the device timestamp.
}

// ValidationError is a user-facing rejection of a well-formed payload.
// The message is specific enough for the caller to render directly.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate enforces monetary bounds and timestamp freshness on a decoded
// transaction. The freshness window is symmetric around now, tolerating
// device clock skew in either direction; boundary values are accepted.
func Validate(tx *Transaction, now time.Time, pol Policy) error {
	if tx.Fare <= 0 {
		return &ValidationError{Reason: "invalid fare: amount must be positive"}
	}
	if tx.Fare > pol.MaxFare {
		return &ValidationError{Reason: fmt.Sprintf("invalid fare: exceeds maximum %.2f", pol.MaxFare)}
	}

	drift := now.UnixMilli() - tx.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > pol.Freshness.Milliseconds() {
		return &ValidationError{Reason: "transaction expired: timestamp outside freshness window"}
	}
	return nil
}
