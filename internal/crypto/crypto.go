// Package crypto seals persisted loan snapshots with a passphrase.
//
// Sealed data is laid out as magic | salt | nonce | AES-256-GCM ciphertext. The key is
// derived from the passphrase with PBKDF2-SHA256 and a random per-record salt.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	iterations = 100000
	keySize    = 32 // AES-256
)

// magic marks sealed records, so plaintext records written before encryption was
// enabled can still be read
var magic = []byte("VOEBB1")

// ErrWrongPassphrase is returned when sealed data cannot be authenticated
var ErrWrongPassphrase = errors.New("cannot decrypt record: wrong passphrase or corrupted data")

// Encryptor handles encryption and decryption of persisted records
type Encryptor struct {
	passphrase []byte
}

// NewEncryptor creates a new encryptor with the given passphrase.
// Returns nil for an empty passphrase; a nil Encryptor passes data through unchanged.
func NewEncryptor(passphrase string) *Encryptor {
	if passphrase == "" {
		return nil
	}
	return &Encryptor{passphrase: []byte(passphrase)}
}

func (e *Encryptor) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	if e == nil {
		return plaintext, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	gcm, err := e.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, len(magic)+saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, magic), nil
}

// Open decrypts data produced by Seal. Data without the sealed-record marker is
// returned unchanged.
func (e *Encryptor) Open(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return data, nil
	}
	if e == nil {
		return nil, errors.New("record is encrypted but no passphrase is configured")
	}

	rest := data[len(magic):]
	if len(rest) < saltSize {
		return nil, ErrWrongPassphrase
	}
	salt, rest := rest[:saltSize], rest[saltSize:]

	gcm, err := e.gcm(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, magic)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// IsSealed reports whether data carries the sealed-record marker
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}
