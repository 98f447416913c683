// Package session implements the secure per-tunnel context: sealing
// and opening Message payloads, and the two sides of the hybrid
// RSA+AES-GCM handshake described in spec §4.3.
package session

import (
	"errors"
	"fmt"

	"mctunnel.dev/crypto/aead"
	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/wire"
)

// Typed handshake failures, distinguishable at the API boundary.
var (
	ErrWrongFirstCommand = errors.New("session: first frame must be SecureConnect")
	ErrPayloadDecode     = errors.New("session: could not decode SecureConnect payload")
	ErrRSADecrypt        = errors.New("session: could not unwrap session key")
	ErrKeyLength         = aead.ErrKeyLength
)

const aesAlgorithmName = "AES-256-GCM"

// Context holds a session's AEAD engine. A zero-value Context has no
// engine and Seal/Open are no-ops, matching the plaintext handshake
// window before a key is established.
type Context struct {
	engine aead.Engine
}

// Seal returns m with its payload encrypted when a key has been
// established; the caller's Message value is not modified.
func (c *Context) Seal(m wire.Message) (wire.Message, error) {
	if c.engine == nil {
		return m, nil
	}
	sealed, err := c.engine.Seal(m.Payload)
	if err != nil {
		return wire.Message{}, fmt.Errorf("session: seal: %w", err)
	}
	m.Payload = sealed
	return m, nil
}

// Open returns m with its payload decrypted when a key has been
// established; the caller's Message value is not modified.
// Any authentication failure here is terminal for the session.
func (c *Context) Open(m wire.Message) (wire.Message, error) {
	if c.engine == nil {
		return m, nil
	}
	opened, err := c.engine.Open(m.Payload)
	if err != nil {
		return wire.Message{}, fmt.Errorf("session: open: %w", err)
	}
	m.Payload = opened
	return m, nil
}

// Established reports whether a symmetric key is in place.
func (c *Context) Established() bool {
	return c.engine != nil
}

// BuildClientHandshake generates a fresh AES-256 key, wraps it under
// the gateway's RSA public key, and returns the ready-to-send
// SecureConnect message alongside the now-primed Context.
func BuildClientHandshake(gatewayKey *rsakeys.PublicKey, protocol wire.Protocol, port uint16) (*Context, wire.Message, error) {
	engine, err := aead.NewRandom()
	if err != nil {
		return nil, wire.Message{}, fmt.Errorf("session: new aes engine: %w", err)
	}
	encryptedKey, err := gatewayKey.Encrypt(engine.KeyBytes())
	if err != nil {
		return nil, wire.Message{}, fmt.Errorf("session: wrap key: %w", err)
	}
	payload := wire.SecureConnectPayload{
		Protocol:     protocol,
		Port:         port,
		EncryptedKey: encryptedKey,
		Algorithm:    aesAlgorithmName,
	}
	msg, err := wire.FromPayload(wire.CmdSecureConnect, &payload)
	if err != nil {
		return nil, wire.Message{}, fmt.Errorf("session: build handshake message: %w", err)
	}
	return &Context{engine: engine}, msg, nil
}

// AcceptServerHandshake validates that msg is a well-formed
// SecureConnect, RSA-decrypts the wrapped AES key, and builds the
// session's AEAD engine from it. It returns the target the client
// asked for alongside the new Context.
func AcceptServerHandshake(msg wire.Message, gatewayPriv *rsakeys.PrivateKey) (*Context, wire.Protocol, uint16, error) {
	if msg.Command != wire.CmdSecureConnect {
		return nil, "", 0, fmt.Errorf("%w: got %q", ErrWrongFirstCommand, msg.Command)
	}
	var payload wire.SecureConnectPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
	}
	keyBytes, err := gatewayPriv.Decrypt(payload.EncryptedKey)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", ErrRSADecrypt, err)
	}
	engine, err := aead.FromKey(keyBytes)
	if err != nil {
		return nil, "", 0, fmt.Errorf("session: %w", err)
	}
	return &Context{engine: engine}, payload.Protocol, payload.Port, nil
}
