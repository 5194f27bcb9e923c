package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func testEncryptor(t *testing.T) *AESEncryptor {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	enc, err := NewAESEncryptor(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("NewAESEncryptor: %v", err)
	}
	return enc
}

func TestNewAESEncryptor(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		errorMsg string
	}{
		{"empty key", "", "encryption key is empty"},
		{"invalid base64", "not-valid-base64!@#$", "base64 decode failed"},
		{"key too short", base64.StdEncoding.EncodeToString(make([]byte, 16)), "must be 32 bytes"},
		{"key too long", base64.StdEncoding.EncodeToString(make([]byte, 64)), "must be 32 bytes"},
		{"valid 32-byte key", base64.StdEncoding.EncodeToString(make([]byte, 32)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewAESEncryptor(tt.key)
			if tt.errorMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("NewAESEncryptor() error = %v, want error containing %q", err, tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("NewAESEncryptor() unexpected error = %v", err)
			}
			if enc == nil {
				t.Errorf("NewAESEncryptor() returned nil encryptor")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := testEncryptor(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"short string", "hello"},
		{"stream key", "sk_us-east-1_AbCdEf123456_GhIjKlMnOpQrStUvWxYz"},
		{"long string", strings.Repeat("a", 1000)},
		{"unicode", "Hello 世界 🌍"},
		{"special characters", "!@#$%^&*()_+-={}[]|\\:;\"'<>,.?/~`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Equal(ciphertext, []byte(tt.plaintext)) {
				t.Errorf("Encrypt() returned plaintext unchanged")
			}
			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if string(decrypted) != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", string(decrypted), tt.plaintext)
			}
		})
	}
}

// Same plaintext must not encrypt to the same bytes twice; the nonce is
// random per call.
func TestEncryptNonDeterministic(t *testing.T) {
	enc := testEncryptor(t)
	plaintext := []byte("test plaintext")

	c1, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	c2, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(c1, c2) {
		t.Errorf("Encrypt() produced identical ciphertexts for same plaintext")
	}
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	enc := testEncryptor(t)

	tests := []struct {
		name       string
		errorMsg   string
		ciphertext []byte
	}{
		{"empty ciphertext", "ciphertext is empty", []byte{}},
		{"ciphertext too short", "ciphertext too short", []byte{1, 2, 3}},
		{"corrupted ciphertext", "authentication or integrity check failed", make([]byte, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.ciphertext)
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Decrypt() error = %v, want error containing %q", err, tt.errorMsg)
			}
		})
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	enc := testEncryptor(t)

	ciphertext, err := enc.Encrypt([]byte("sensitive data"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ciphertext[20] ^= 0x01
	if _, err := enc.Decrypt(ciphertext); err == nil {
		t.Errorf("Decrypt() should fail for tampered ciphertext")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	enc1 := testEncryptor(t)
	enc2 := testEncryptor(t)

	ciphertext, err := enc1.Encrypt([]byte("secret message"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Errorf("Decrypt() with wrong key should fail")
	}
}

func TestStringWrappers(t *testing.T) {
	enc := testEncryptor(t)

	t.Run("empty passthrough", func(t *testing.T) {
		if got, err := EncryptString(enc, ""); err != nil || got != "" {
			t.Errorf("EncryptString(\"\") = %q, %v; want empty, nil", got, err)
		}
		if got, err := DecryptString(enc, ""); err != nil || got != "" {
			t.Errorf("DecryptString(\"\") = %q, %v; want empty, nil", got, err)
		}
	})

	t.Run("roundtrip", func(t *testing.T) {
		plaintext := "sk_us-east-1_test_key"
		encrypted, err := EncryptString(enc, plaintext)
		if err != nil {
			t.Fatalf("EncryptString() error = %v", err)
		}
		if _, err := base64.StdEncoding.DecodeString(encrypted); err != nil {
			t.Errorf("EncryptString() result is not valid base64: %v", err)
		}
		decrypted, err := DecryptString(enc, encrypted)
		if err != nil {
			t.Fatalf("DecryptString() error = %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("DecryptString() = %q, want %q", decrypted, plaintext)
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		if _, err := DecryptString(enc, "not-valid-base64!@#"); err == nil {
			t.Errorf("DecryptString() with invalid base64 should return error")
		}
	})
}
