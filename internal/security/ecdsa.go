package security

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// ParseDevicePublicKey decodes a base64 X.509 SubjectPublicKeyInfo blob, as
// exported by client-side secure key storage, into an EC public key.
// Malformed key material is a structural error, never a false verification.
func ParseDevicePublicKey(encoded string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("security: decode public key: %w", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("security: parse public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("security: public key is %T, not ECDSA", parsed)
	}
	return pub, nil
}

// VerifyDeviceSignature reports whether signature is a valid ECDSA signature
// (ASN.1 DER, SHA-256 digest) over the exact payload bytes under pub.
// A well-formed but non-matching signature returns false; it is never an
// error. Any single-bit change to payload or signature flips the result.
func VerifyDeviceSignature(pub *ecdsa.PublicKey, payload, signature []byte) bool {
	if pub == nil {
		return false
	}
	digest := sha256.Sum256(payload)
	return ecdsa.VerifyASN1(pub, digest[:], signature)
}
