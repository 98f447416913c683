package rsakeys

import (
	"bytes"
	"testing"
)

func TestGenerateEncryptDecryptRoundTrip(t *testing.T) {
	kp, err := Generate(2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	plaintext := []byte("0123456789abcdef0123456789abcdef") // 32-byte AES key
	ct, err := kp.Public.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := kp.Private.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("got %x want %x", pt, plaintext)
	}
}

func TestDERRoundTrip(t *testing.T) {
	kp, err := Generate(2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pubDER, err := kp.Public.PublicKeyDER()
	if err != nil {
		t.Fatalf("PublicKeyDER: %v", err)
	}
	privDER, err := kp.Private.PrivateKeyDER()
	if err != nil {
		t.Fatalf("PrivateKeyDER: %v", err)
	}
	pub2, err := ParsePublicKeyDER(pubDER)
	if err != nil {
		t.Fatalf("ParsePublicKeyDER: %v", err)
	}
	priv2, err := ParsePrivateKeyDER(privDER)
	if err != nil {
		t.Fatalf("ParsePrivateKeyDER: %v", err)
	}
	msg := []byte("hello")
	ct, err := pub2.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := priv2.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, msg) {
		t.Fatalf("got %x want %x", pt, msg)
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := Generate(2048)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("the message")
	sig, err := kp.Private.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !kp.Public.Verify(msg, sig) {
		t.Fatal("Verify failed on valid signature")
	}
	if kp.Public.Verify([]byte("tampered"), sig) {
		t.Fatal("Verify succeeded on tampered message")
	}
}
