package aead

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	e, err := NewRandom()
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	cases := [][]byte{nil, []byte{}, []byte("hello"), bytes.Repeat([]byte{0xAB}, 4096)}
	for i, pt := range cases {
		sealed, err := e.Seal(pt)
		if err != nil {
			t.Fatalf("case %d: Seal: %v", i, err)
		}
		got, err := e.Open(sealed)
		if err != nil {
			t.Fatalf("case %d: Open: %v", i, err)
		}
		if !bytes.Equal(got, pt) {
			t.Errorf("case %d: got %x want %x", i, got, pt)
		}
	}
}

func TestFromKeyWrongLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := FromKey(make([]byte, n)); err != ErrKeyLength {
			t.Errorf("len %d: got %v want ErrKeyLength", n, err)
		}
	}
}

func TestOpenRejectsShortCiphertext(t *testing.T) {
	e, err := NewRandom()
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	if _, err := e.Open(make([]byte, 11)); err != ErrCiphertextShort {
		t.Fatalf("got %v want ErrCiphertextShort", err)
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	e, err := NewRandom()
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	sealed, err := e.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	_, err = e.Open(sealed)
	if err == nil {
		t.Fatal("expected error opening tampered ciphertext")
	}
	if !errors.Is(err, ErrUnsealFailed) {
		t.Fatalf("got %v, want errors.Is(err, ErrUnsealFailed)", err)
	}
}

func TestSealNoncesDontRepeat(t *testing.T) {
	e, err := NewRandom()
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	seen := make(map[string]bool)
	const n = 10000
	for i := 0; i < n; i++ {
		sealed, err := e.Seal([]byte("x"))
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		nonce := string(sealed[:12])
		if seen[nonce] {
			t.Fatalf("nonce collision after %d seals", i)
		}
		seen[nonce] = true
	}
}

func TestCrossEngineIsolation(t *testing.T) {
	a, err := NewRandom()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRandom()
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := a.Seal([]byte("for a's ears only"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(sealed); !errors.Is(err, ErrUnsealFailed) {
		t.Fatalf("expected b to fail opening a's ciphertext with ErrUnsealFailed, got %v", err)
	}
}
