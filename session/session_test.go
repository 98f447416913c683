package session

import (
	"bytes"
	"errors"
	"testing"

	"mctunnel.dev/crypto/aead"
	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/wire"
)

func testKeyPair(t *testing.T) *rsakeys.KeyPair {
	t.Helper()
	kp, err := rsakeys.Generate(2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return kp
}

func TestHandshakeRoundTrip(t *testing.T) {
	kp := testKeyPair(t)
	clientCtx, msg, err := BuildClientHandshake(kp.Public, wire.ProtoTCP, 25565)
	if err != nil {
		t.Fatalf("BuildClientHandshake: %v", err)
	}
	serverCtx, protocol, port, err := AcceptServerHandshake(msg, kp.Private)
	if err != nil {
		t.Fatalf("AcceptServerHandshake: %v", err)
	}
	if protocol != wire.ProtoTCP || port != 25565 {
		t.Fatalf("got protocol=%v port=%d want tcp/25565", protocol, port)
	}

	data := wire.Message{Command: wire.CmdData, Payload: []byte("hello backend")}
	sealed, err := clientCtx.Seal(data)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	opened, err := serverCtx.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened.Payload, data.Payload) {
		t.Fatalf("got %q want %q", opened.Payload, data.Payload)
	}
}

func TestAcceptServerHandshakeWrongCommand(t *testing.T) {
	kp := testKeyPair(t)
	msg := wire.NewMessage(wire.CmdPing, nil)
	if _, _, _, err := AcceptServerHandshake(msg, kp.Private); err == nil {
		t.Fatal("expected error for non-SecureConnect first frame")
	}
}

func TestAcceptServerHandshakeBadPayload(t *testing.T) {
	kp := testKeyPair(t)
	msg := wire.NewMessage(wire.CmdSecureConnect, []byte{0xFF, 0xFF, 0xFF})
	if _, _, _, err := AcceptServerHandshake(msg, kp.Private); err == nil {
		t.Fatal("expected error for undecodable payload")
	}
}

func TestAcceptServerHandshakeWrongKey(t *testing.T) {
	kpA := testKeyPair(t)
	kpB := testKeyPair(t)
	_, msg, err := BuildClientHandshake(kpA.Public, wire.ProtoTCP, 80)
	if err != nil {
		t.Fatalf("BuildClientHandshake: %v", err)
	}
	if _, _, _, err := AcceptServerHandshake(msg, kpB.Private); err == nil {
		t.Fatal("expected error decrypting under the wrong private key")
	}
}

func TestContextZeroValueIsPassthrough(t *testing.T) {
	var c Context
	if c.Established() {
		t.Fatal("zero-value Context should not report established")
	}
	m := wire.Message{Command: wire.CmdData, Payload: []byte("plain")}
	sealed, err := c.Seal(m)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.Equal(sealed.Payload, m.Payload) {
		t.Fatal("zero-value Context.Seal should pass payload through unchanged")
	}
	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened.Payload, m.Payload) {
		t.Fatal("zero-value Context.Open should pass payload through unchanged")
	}
}

func TestOpenTamperedPayloadIsUnsealFailed(t *testing.T) {
	kpA := testKeyPair(t)
	clientCtx, msg, err := BuildClientHandshake(kpA.Public, wire.ProtoTCP, 25565)
	if err != nil {
		t.Fatalf("BuildClientHandshake: %v", err)
	}
	serverCtx, _, _, err := AcceptServerHandshake(msg, kpA.Private)
	if err != nil {
		t.Fatalf("AcceptServerHandshake: %v", err)
	}
	sealed, err := clientCtx.Seal(wire.Message{Command: wire.CmdData, Payload: []byte("hello")})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed.Payload[len(sealed.Payload)-1] ^= 0xFF
	if _, err := serverCtx.Open(sealed); !errors.Is(err, aead.ErrUnsealFailed) {
		t.Fatalf("got %v, want errors.Is(err, aead.ErrUnsealFailed)", err)
	}
}

func TestEstablishedAfterHandshake(t *testing.T) {
	kp := testKeyPair(t)
	c, _, err := BuildClientHandshake(kp.Public, wire.ProtoTCP, 1)
	if err != nil {
		t.Fatalf("BuildClientHandshake: %v", err)
	}
	if !c.Established() {
		t.Fatal("expected Established after handshake")
	}
}
