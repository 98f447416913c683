package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		NewMessage(CmdSecureConnect, []byte("hello")),
		NewMessage(CmdData, []byte{0x01, 0x02, 0x03}),
		NewMessage(CmdDisconnect, nil),
		NewMessage(CmdPing, []byte("x")),
	}
	for i, want := range cases {
		b, err := Encode(want)
		if err != nil {
			t.Fatalf("case %d: encode: %v", i, err)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		if got.Command != want.Command || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("case %d: got %+v want %+v", i, got, want)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	cases := []interface{}{
		&SecureConnectPayload{Protocol: ProtoTCP, Port: 25565, EncryptedKey: []byte{1, 2, 3}, Algorithm: "AES-256-GCM"},
		&ConnectResponsePayload{Success: true, Message: "OK"},
		&ConnectResponsePayload{Success: false, Message: "Unauthorized target"},
		&PingPayload{TimestampMS: 1234567890},
		&ServerInfoResponsePayload{
			ServerVersion:   "1.0.0",
			ProtocolVersion: "1",
			AllowedPorts:    []AllowedPort{{Port: 25565, Protocol: ProtoTCP}},
		},
	}
	for i, want := range cases {
		msg, err := FromPayload(CmdSecureConnect, want)
		if err != nil {
			t.Fatalf("case %d: FromPayload: %v", i, err)
		}
		switch w := want.(type) {
		case *SecureConnectPayload:
			var got SecureConnectPayload
			if err := msg.DecodePayload(&got); err != nil {
				t.Fatalf("case %d: decode: %v", i, err)
			}
			if got != *w {
				t.Errorf("case %d: got %+v want %+v", i, got, *w)
			}
		case *ConnectResponsePayload:
			var got ConnectResponsePayload
			if err := msg.DecodePayload(&got); err != nil {
				t.Fatalf("case %d: decode: %v", i, err)
			}
			if got != *w {
				t.Errorf("case %d: got %+v want %+v", i, got, *w)
			}
		case *PingPayload:
			var got PingPayload
			if err := msg.DecodePayload(&got); err != nil {
				t.Fatalf("case %d: decode: %v", i, err)
			}
			if got != *w {
				t.Errorf("case %d: got %+v want %+v", i, got, *w)
			}
		case *ServerInfoResponsePayload:
			var got ServerInfoResponsePayload
			if err := msg.DecodePayload(&got); err != nil {
				t.Fatalf("case %d: decode: %v", i, err)
			}
			if got.ServerVersion != w.ServerVersion || len(got.AllowedPorts) != len(w.AllowedPorts) {
				t.Errorf("case %d: got %+v want %+v", i, got, *w)
			}
		}
	}
}

func TestDecodeUnknownCommand(t *testing.T) {
	b, err := Encode(Message{Command: "Bogus", Payload: nil})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(b); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestDecodeOversizedFrame(t *testing.T) {
	old := MaxFrameSize
	MaxFrameSize = 4
	defer func() { MaxFrameSize = old }()
	b, err := Encode(NewMessage(CmdData, []byte("too big for four bytes")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(b); err != ErrFrameTooLarge {
		t.Fatalf("got %v want ErrFrameTooLarge", err)
	}
}
