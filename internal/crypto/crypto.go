// Package crypto seals and opens the Kintone API token for at-rest storage
// in configuration files. Tokens are long-lived, so a leaked config file
// should not hand out working credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize    = 32
	nonceSize  = 12
	saltSize   = 16
	iterations = 100000
)

// SealToken encrypts a token with a passphrase using AES-256-GCM with a
// PBKDF2-derived key. The result is base64(salt || nonce || ciphertext).
func SealToken(token, passphrase string) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := aead(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(token), nil)

	combined := make([]byte, 0, saltSize+nonceSize+len(sealed))
	combined = append(combined, salt...)
	combined = append(combined, nonce...)
	combined = append(combined, sealed...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// OpenToken decrypts a token sealed by SealToken.
func OpenToken(sealed, passphrase string) (string, error) {
	combined, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed token: %w", err)
	}
	if len(combined) < saltSize+nonceSize {
		return "", fmt.Errorf("sealed token too short: %d bytes", len(combined))
	}

	salt := combined[:saltSize]
	nonce := combined[saltSize : saltSize+nonceSize]
	ciphertext := combined[saltSize+nonceSize:]

	gcm, err := aead(passphrase, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed token: %w", err)
	}
	return string(plaintext), nil
}

func aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
