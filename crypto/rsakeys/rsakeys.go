// Package rsakeys implements the gateway's asymmetric keypair: PKCS#1
// v1.5 encryption (to wrap a session's AES key) and PKCS#1
// v1.5-SHA256 signing (present for parity with the protocol model,
// unused by the current handshake).
package rsakeys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// DefaultBits is the modulus size used when a runtime ephemeral
// keypair is generated. The CLI key-generation utility defaults to
// 4096 bits instead; the handshake doesn't depend on modulus size.
const DefaultBits = 2048

// PublicKey wraps an RSA public key for encryption and signature verification.
type PublicKey struct {
	key *rsa.PublicKey
}

// PrivateKey wraps an RSA private key for decryption and signing.
type PrivateKey struct {
	key *rsa.PrivateKey
}

// KeyPair is a freshly generated or loaded RSA private/public pair.
type KeyPair struct {
	Private *PrivateKey
	Public  *PublicKey
}

// Generate creates a new RSA keypair of the given modulus size.
func Generate(bits int) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: generate: %w", err)
	}
	return &KeyPair{
		Private: &PrivateKey{key: priv},
		Public:  &PublicKey{key: &priv.PublicKey},
	}, nil
}

// PublicKeyDER returns the public key encoded as a DER
// SubjectPublicKeyInfo record.
func (k *PublicKey) PublicKeyDER() ([]byte, error) {
	b, err := x509.MarshalPKIXPublicKey(k.key)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: marshal public key: %w", err)
	}
	return b, nil
}

// PrivateKeyDER returns the private key encoded as a DER PKCS#8 record.
func (k *PrivateKey) PrivateKeyDER() ([]byte, error) {
	b, err := x509.MarshalPKCS8PrivateKey(k.key)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: marshal private key: %w", err)
	}
	return b, nil
}

// ParsePublicKeyDER parses a DER SubjectPublicKeyInfo record.
func ParsePublicKeyDER(der []byte) (*PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("rsakeys: not an RSA public key")
	}
	return &PublicKey{key: rsaPub}, nil
}

// ParsePrivateKeyDER parses a DER PKCS#8 record.
func ParsePrivateKeyDER(der []byte) (*PrivateKey, error) {
	priv, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: parse private key: %w", err)
	}
	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("rsakeys: not an RSA private key")
	}
	return &PrivateKey{key: rsaPriv}, nil
}

// EncodePEM wraps a DER record in a PEM block of the given type, for
// human-facing key exchange, matching the Base64/PEM handling the front-end
// collaborators are expected to do per spec §4.2.
func EncodePEM(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

// Encrypt RSA-PKCS#1v1.5 encrypts data under the public key. data must
// be at most (modulus bytes - 11) long.
func (k *PublicKey) Encrypt(data []byte) ([]byte, error) {
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, k.key, data)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: encrypt: %w", err)
	}
	return ct, nil
}

// Decrypt RSA-PKCS#1v1.5 decrypts data under the private key.
func (k *PrivateKey) Decrypt(data []byte) ([]byte, error) {
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, k.key, data)
	if err != nil {
		return nil, fmt.Errorf("rsakeys: decrypt: %w", err)
	}
	return pt, nil
}

// Sign produces an RSASSA-PKCS1-v1_5 signature over SHA-256(msg).
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	h := sha256.Sum256(msg)
	sig, err := rsa.SignPKCS1v15(rand.Reader, k.key, crypto.SHA256, h[:])
	if err != nil {
		return nil, fmt.Errorf("rsakeys: sign: %w", err)
	}
	return sig, nil
}

// Verify checks an RSASSA-PKCS1-v1_5 signature over SHA-256(msg).
func (k *PublicKey) Verify(msg, sig []byte) bool {
	h := sha256.Sum256(msg)
	return rsa.VerifyPKCS1v15(k.key, crypto.SHA256, h[:], sig) == nil
}
