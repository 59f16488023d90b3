// Package crypt provides AES-256-GCM authenticated encryption.
//
// Sealed output is nonce || ciphertext || tag. The String helpers
// base64url-encode it so it can sit in a text column or a cookie.
//
// Usage:
//
//	box, err := crypt.New(secret)
//	sealed, err := box.Seal([]byte("hello"))
//	plain, err := box.Open(sealed)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt is returned when decryption or authentication fails.
var ErrDecrypt = errors.New("crypt: decryption failed")

// ErrNoKey is returned by New for an empty secret.
var ErrNoKey = errors.New("crypt: empty key")

// Box seals and opens data under one key. It is safe for concurrent use.
type Box struct {
	aead cipher.AEAD
}

// New derives a 32-byte key from secret with SHA-256.
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, ErrNoKey
	}
	k := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: new GCM: %w", err)
	}
	return &Box{aead: gcm}, nil
}

// Seal encrypts data with a fresh random nonce.
func (b *Box) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypt: nonce: %w", err)
	}
	// Seal appends ciphertext+tag after nonce.
	return b.aead.Seal(nonce, nonce, data, nil), nil
}

// Open reverses Seal. Tampered or foreign input yields ErrDecrypt.
func (b *Box) Open(sealed []byte) ([]byte, error) {
	n := b.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrDecrypt
	}
	plain, err := b.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// SealString is Seal with base64url output.
func (b *Box) SealString(plain string) (string, error) {
	sealed, err := b.Seal([]byte(plain))
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func (b *Box) OpenString(encoded string) (string, error) {
	sealed, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	plain, err := b.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
