package security

import (
	"os"
	"testing"
)

func TestVaultRoundTrip(t *testing.T) {
	v := NewVault(t.TempDir())

	enc, err := v.Encrypt("s3cret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc == "s3cret" || enc == "" {
		t.Fatalf("expected ciphertext, got %q", enc)
	}
	dec, err := v.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if dec != "s3cret" {
		t.Fatalf("expected s3cret got %q", dec)
	}

	info, err := os.Stat(v.KeyPath())
	if err != nil {
		t.Fatalf("key file: %v", err)
	}
	if info.Size() != 32 {
		t.Fatalf("expected 32 byte key got %d", info.Size())
	}
}

func TestVaultDecryptOrPlain(t *testing.T) {
	v := NewVault(t.TempDir())
	if got := v.DecryptOrPlain("plain-password"); got != "plain-password" {
		t.Fatalf("expected plain value back, got %q", got)
	}
	if got, _ := v.Encrypt(""); got != "" {
		t.Fatalf("empty input should stay empty, got %q", got)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "admin123") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
}
