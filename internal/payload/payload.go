// Package payload decodes and validates offline transaction payloads signed
// by a paired device. Decoding runs only after the signature over the raw
// bytes has been verified, so nothing here ever sees attacker-controlled
// input that was not signed.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Transaction is the decoded offline fare transaction.
type Transaction struct {
	TxID      string  `json:"txId"`      // Client-generated idempotency key.
	Fare      float64 `json:"fare"`      // Fare amount in currency units.
	Timestamp int64   `json:"timestamp"` // Device clock at signing, epoch milliseconds.
}

// DecodeError indicates the payload could not be decoded into a Transaction.
type DecodeError struct {
	Reason string
	cause  error
}

func (e *DecodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("payload: %s: %v", e.Reason, e.cause)
	}
	return "payload: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.cause }

// Decode parses a base64 string into raw bytes and interprets them as a
// UTF-8 JSON transaction record. Malformed base64, invalid UTF-8, invalid
// JSON and missing or mistyped fields are all decode errors.
func Decode(encoded string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodeError{Reason: "malformed base64", cause: err}
	}
	return DecodeBytes(raw)
}

// DecodeBytes interprets already-decoded payload bytes as a UTF-8 JSON
// transaction record.
func DecodeBytes(raw []byte) (*Transaction, error) {
	if !utf8.Valid(raw) {
		return nil, &DecodeError{Reason: "payload is not valid UTF-8"}
	}

	var fields struct {
		TxID      *string  `json:"txId"`
		Fare      *float64 `json:"fare"`
		Timestamp *int64   `json:"timestamp"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if errDecode := dec.Decode(&fields); errDecode != nil {
		return nil, &DecodeError{Reason: "invalid payload JSON", cause: errDecode}
	}

	if fields.TxID == nil || strings.TrimSpace(*fields.TxID) == "" {
		return nil, &DecodeError{Reason: "missing txId"}
	}
	if fields.Fare == nil {
		return nil, &DecodeError{Reason: "missing fare"}
	}
	if fields.Timestamp == nil {
		return nil, &DecodeError{Reason: "missing timestamp"}
	}

	return &Transaction{
		TxID:      *fields.TxID,
		Fare:      *fields.Fare,
		Timestamp: *fields.Timestamp,
	}, nil
}
