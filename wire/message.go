// Package wire implements the framed message container and payload
// variants that cross the gateway-client WebSocket connection.
//
// Every frame is a MessagePack-encoded Message. The payload field is
// itself an opaque byte string: for most commands it holds a nested
// MessagePack record, decoded with DecodePayload; for Data it holds
// raw tunneled bytes.
package wire

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Command identifies the kind of a Message.
type Command string

const (
	CmdSecureConnect     Command = "SecureConnect"
	CmdConnect           Command = "Connect" // legacy plaintext connect, always rejected
	CmdConnectResponse   Command = "ConnectResponse"
	CmdData              Command = "Data"
	CmdDisconnect        Command = "Disconnect"
	CmdPing              Command = "Ping"
	CmdPong              Command = "Pong"
	CmdGetServerInfo     Command = "GetServerInfo"
	CmdServerInfoResponse Command = "ServerInfoResponse"
)

// MaxFrameSize bounds the size of a single decoded frame. It is a
// tunable, not a protocol constant: spec §9 leaves this as an
// implementation choice.
var MaxFrameSize = 16 << 20 // 16 MiB

// ErrUnknownCommand is returned by Decode when a frame names a command
// tag this implementation doesn't recognize.
var ErrUnknownCommand = errors.New("wire: unknown command")

// ErrFrameTooLarge is returned by Decode when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// Message is the container every frame carries.
type Message struct {
	Command Command `msgpack:"command"`
	Payload []byte  `msgpack:"payload"`
}

// NewMessage wraps an already-encoded or raw payload in a Message.
func NewMessage(cmd Command, payload []byte) Message {
	return Message{Command: cmd, Payload: payload}
}

// FromPayload msgpack-encodes v and wraps the result as the Message's payload.
func FromPayload(cmd Command, v interface{}) (Message, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("wire: encode payload: %w", err)
	}
	return NewMessage(cmd, b), nil
}

// DecodePayload unmarshals m's payload into v.
func (m Message) DecodePayload(v interface{}) error {
	if err := msgpack.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("wire: decode payload: %w", err)
	}
	return nil
}

// Encode serializes m to its wire form.
func Encode(m Message) ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode message: %w", err)
	}
	return b, nil
}

// Decode parses a wire frame into a Message.
func Decode(b []byte) (Message, error) {
	if len(b) > MaxFrameSize {
		return Message{}, ErrFrameTooLarge
	}
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("wire: decode message: %w", err)
	}
	switch m.Command {
	case CmdSecureConnect, CmdConnect, CmdConnectResponse, CmdData, CmdDisconnect,
		CmdPing, CmdPong, CmdGetServerInfo, CmdServerInfoResponse:
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, m.Command)
	}
	return m, nil
}
