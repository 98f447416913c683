package wire

// Protocol identifies the transport protocol of a tunnel target.
// UDP is named so the wire format can grow into it later, but no
// data plane in this repository implements it: the gateway rejects
// any non-TCP protocol outright (see gateway package).
type Protocol string

const (
	ProtoTCP Protocol = "TCP"
	ProtoUDP Protocol = "UDP"
)

// AllowedPort is one entry of a gateway's allow-list.
type AllowedPort struct {
	Port     uint16   `msgpack:"port"`
	Protocol Protocol `msgpack:"protocol"`
}

// SecureConnectPayload is the first frame of a session, sent
// plaintext. EncryptedKey is the session's AES-256 key, RSA-PKCS1v15
// encrypted under the gateway's public key.
type SecureConnectPayload struct {
	Protocol     Protocol `msgpack:"protocol"`
	Port         uint16   `msgpack:"port"`
	EncryptedKey []byte   `msgpack:"encryptedKey"`
	Algorithm    string   `msgpack:"algorithm"`
}

// ConnectPayload is the legacy, always-rejected plaintext connect
// request. Kept only so the gateway can recognize and reject it
// without failing to decode the frame.
type ConnectPayload struct {
	Protocol Protocol `msgpack:"protocol"`
	Port     uint16   `msgpack:"port"`
}

// ConnectResponsePayload answers a SecureConnect.
type ConnectResponsePayload struct {
	Success bool   `msgpack:"success"`
	Message string `msgpack:"message"`
}

// PingPayload carries a sender-clock-domain timestamp in milliseconds,
// echoed verbatim by the receiver as a Pong.
type PingPayload struct {
	TimestampMS uint64 `msgpack:"timestamp"`
}

// ServerInfoResponsePayload answers GetServerInfo.
type ServerInfoResponsePayload struct {
	ServerVersion   string        `msgpack:"serverVersion"`
	ProtocolVersion string        `msgpack:"protocolVersion"`
	AllowedPorts    []AllowedPort `msgpack:"allowedPorts"`
}
