// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestNewCredentialEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr error
	}{
		{"valid secret", "a-long-enough-encryption-secret-value", nil},
		{"empty secret", "", ErrEmptySecret},
		{"short secret", "x", nil},
		{"long secret", strings.Repeat("a", 1000), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewCredentialEncryptor(tt.secret)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if enc != nil {
					t.Error("returned encryptor on error")
				}
				return
			}
			if err != nil || enc == nil {
				t.Fatalf("unexpected result: enc=%v err=%v", enc, err)
			}
		})
	}
}

func TestCredentialEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-secret-for-round-trip-checks")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor: %v", err)
	}

	for _, plaintext := range []string{"A1B2C3D4E5F6G7H8I9J0", "k", strings.Repeat("z", 4096), "ключ-🔑"} {
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if ciphertext == plaintext {
			t.Error("ciphertext equals plaintext")
		}
		got, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestCredentialEncryptor_UniqueNonce(t *testing.T) {
	enc, _ := NewCredentialEncryptor("nonce-secret")

	a, _ := enc.Encrypt("same-value")
	b, _ := enc.Encrypt("same-value")
	if a == b {
		t.Error("two encryptions of the same value should differ")
	}
}

func TestCredentialEncryptor_DecryptErrors(t *testing.T) {
	enc, _ := NewCredentialEncryptor("decrypt-secret")
	other, _ := NewCredentialEncryptor("different-secret")

	valid, _ := enc.Encrypt("api-key-value")
	raw, _ := base64.StdEncoding.DecodeString(valid)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name       string
		enc        *CredentialEncryptor
		ciphertext string
		wantErr    error
	}{
		{"empty", enc, "", ErrEmptyCiphertext},
		{"not base64", enc, "!!!not-base64!!!", ErrInvalidCiphertext},
		{"too short", enc, base64.StdEncoding.EncodeToString([]byte("short")), ErrCiphertextTooShort},
		{"tampered", enc, tampered, ErrDecryptionFailed},
		{"wrong secret", other, valid, ErrDecryptionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.enc.Decrypt(tt.ciphertext)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialEncryptor_EncryptEmpty(t *testing.T) {
	enc, _ := NewCredentialEncryptor("secret")
	if _, err := enc.Encrypt(""); !errors.Is(err, ErrEmptyPlaintext) {
		t.Errorf("error = %v, want ErrEmptyPlaintext", err)
	}
}

func TestMaskCredential(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"abc":                  "****",
		"abcd":                 "****",
		"A1B2C3D4E5F6G7H8I9J0": "****...I9J0",
	}
	for in, want := range tests {
		if got := MaskCredential(in); got != want {
			t.Errorf("MaskCredential(%q) = %q, want %q", in, got, want)
		}
	}
}
