// Package types defines small value types shared across regsort packages.
package types

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// FingerprintSize is the digest length of a configuration fingerprint.
const FingerprintSize = 32

// ErrInvalidFingerprint is returned when a fingerprint has invalid length.
var ErrInvalidFingerprint = errors.New("invalid fingerprint: must be 32 bytes")

// Fingerprint identifies a search configuration (layout plus instruction
// catalog). A visited store records the fingerprint it was built for so a
// reopened store is never reused for a different problem.
type Fingerprint [FingerprintSize]byte

// FingerprintFromBase58 parses a base58-encoded fingerprint.
func FingerprintFromBase58(s string) (Fingerprint, error) {
	var f Fingerprint
	data, err := base58.Decode(s)
	if err != nil {
		return f, fmt.Errorf("base58 decode: %w", err)
	}
	return FingerprintFromBytes(data)
}

// FingerprintFromBytes creates a Fingerprint from a byte slice.
func FingerprintFromBytes(b []byte) (Fingerprint, error) {
	var f Fingerprint
	if len(b) != FingerprintSize {
		return f, ErrInvalidFingerprint
	}
	copy(f[:], b)
	return f, nil
}

// String returns the base58-encoded representation.
func (f Fingerprint) String() string {
	return base58.Encode(f[:])
}

// Short returns the first 8 characters of the base58 form, for log lines.
func (f Fingerprint) Short() string {
	s := f.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// IsZero returns true if the fingerprint is all zeros.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Equals returns true if two fingerprints are equal.
func (f Fingerprint) Equals(other Fingerprint) bool {
	return f == other
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := FingerprintFromBase58(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
