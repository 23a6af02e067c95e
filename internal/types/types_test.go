package types

import (
	"errors"
	"testing"
)

func TestFingerprintRoundTrip(t *testing.T) {
	var f Fingerprint
	for i := range f {
		f[i] = byte(i * 7)
	}

	parsed, err := FingerprintFromBase58(f.String())
	if err != nil {
		t.Fatalf("FingerprintFromBase58() error = %v", err)
	}
	if !parsed.Equals(f) {
		t.Errorf("round trip = %v, want %v", parsed, f)
	}

	text, _ := f.MarshalText()
	var u Fingerprint
	if err := u.UnmarshalText(text); err != nil || u != f {
		t.Errorf("UnmarshalText() = %v, %v", u, err)
	}

	if got := f.Short(); len(got) != 8 || got != f.String()[:8] {
		t.Errorf("Short() = %q", got)
	}
}

func TestFingerprintInvalid(t *testing.T) {
	if _, err := FingerprintFromBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidFingerprint) {
		t.Errorf("FingerprintFromBytes(short) = %v, want ErrInvalidFingerprint", err)
	}
	if _, err := FingerprintFromBase58("0OIl"); err == nil {
		t.Error("FingerprintFromBase58 accepted invalid alphabet")
	}
	if !(Fingerprint{}).IsZero() {
		t.Error("zero fingerprint not IsZero")
	}
}
