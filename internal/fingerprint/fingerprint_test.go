package fingerprint

import (
	"encoding/hex"
	"testing"
)

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint()
	b := Fingerprint()
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
}

func TestFingerprintIsHexSHA256(t *testing.T) {
	fp := Fingerprint()
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		t.Fatalf("not hex: %v", err)
	}
}
