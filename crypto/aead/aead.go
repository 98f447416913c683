// Package aead implements the AES-256-GCM engine used to seal and
// open every Message payload once a session's handshake has
// established a symmetric key.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12
)

// ErrKeyLength is returned by FromKey when the key isn't exactly 32 bytes.
var ErrKeyLength = errors.New("aead: key must be exactly 32 bytes")

// ErrCiphertextShort is returned by Open when the input is too short
// to contain a nonce.
var ErrCiphertextShort = errors.New("aead: ciphertext shorter than nonce")

// ErrUnsealFailed is returned by Open when GCM tag authentication
// fails — tampering, a wrong key, or a corrupted frame. Distinct from
// ErrCiphertextShort so callers can tell a malformed frame from one
// that failed to authenticate.
var ErrUnsealFailed = errors.New("aead: unseal failed")

// Engine seals and opens byte slices under a fixed AES-256-GCM key.
// A fresh random 96-bit nonce is drawn for every Seal call and
// prepended to the output; Open splits it back off.
type Engine interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
	KeyBytes() []byte
}

type gcmEngine struct {
	gcm cipher.AEAD
	key []byte
}

// NewRandom draws a fresh 256-bit key from a CSPRNG and builds an engine from it.
func NewRandom() (Engine, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("aead: generate key: %w", err)
	}
	return FromKey(key)
}

// FromKey builds an engine from externally supplied key material (e.g.
// the result of a handshake). key must be exactly 32 bytes.
func FromKey(key []byte) (Engine, error) {
	if len(key) != keySize {
		return nil, ErrKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("aead: new gcm: %w", err)
	}
	keyCopy := append([]byte(nil), key...)
	return &gcmEngine{gcm: gcm, key: keyCopy}, nil
}

// Seal encrypts plaintext and returns nonce(12) || ciphertext||tag.
// The nonce is drawn fresh, from a CSPRNG, on every call: a counter
// would repeat across session resumption patterns the protocol may
// grow, which would be catastrophic under GCM.
func (e *gcmEngine) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("aead: generate nonce: %w", err)
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open splits the leading nonce off sealed and authenticates/decrypts
// the remainder. Any tampering is reported as an error; it is up to
// the caller to treat that as fatal to the session.
func (e *gcmEngine) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextShort
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	pt, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	return pt, nil
}

func (e *gcmEngine) KeyBytes() []byte {
	return append([]byte(nil), e.key...)
}
