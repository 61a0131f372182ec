package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	aead, err := NewAESGCM(testKey(t))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}

	plaintext := []byte("AQVNxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	ciphertext, err := Encrypt(aead, plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Error("ciphertext contains the plaintext")
	}

	decrypted, err := Decrypt(aead, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: got %q", decrypted)
	}
}

func TestEncryptProducesUniqueNonces(t *testing.T) {
	aead, err := NewAESGCM(testKey(t))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}

	a, err := Encrypt(aead, []byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := Encrypt(aead, []byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same input produced identical ciphertexts")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	aead, err := NewAESGCM(testKey(t))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}

	ciphertext, err := Encrypt(aead, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0x01

	if _, err := Decrypt(aead, ciphertext); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	aead, err := NewAESGCM(testKey(t))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}

	if _, err := Decrypt(aead, []byte{0x01, 0x02}); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestNewAESGCMRejectsBadKeySize(t *testing.T) {
	if _, err := NewAESGCM(make([]byte, 17)); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}
