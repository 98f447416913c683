package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/internal/logx"
	"mctunnel.dev/session"
	"mctunnel.dev/wire"
	"mctunnel.dev/wordlist"
)

// ServerVersion is reported in ServerInfoResponse and the /info endpoint.
const ServerVersion = "1.0.0"

// ProtocolVersion identifies the wire protocol this gateway speaks,
// so an old client can print a friendly upgrade message.
const ProtocolVersion = "1"

const backendDialTimeout = 10 * time.Second
const backendReadChunk = 8 << 10 // 8 KiB, per spec §4.4

// ErrBackendIO and ErrWsIO distinguish which side of the bridge broke.
// ErrWsIO wraps the error send returns; ErrBackendIO wraps backend
// read/write errors in the session's log lines only. Session.Run
// returns no error, so neither reaches code outside the session.
var (
	ErrBackendIO = errors.New("gateway: backend io error")
	ErrWsIO      = errors.New("gateway: websocket io error")
)

type state int

const (
	stateAwaitingHandshake state = iota
	stateBridging
	stateClosed
)

// Session is one gateway-side WebSocket connection: the state machine
// described in spec §4.4. One Session owns at most one backend TCP
// connection, bridged 1:1 with the WebSocket.
type Session struct {
	id       uuid.UUID
	nickname string
	conn     *websocket.Conn
	allow    AllowList
	priv     *rsakeys.PrivateKey
	log      *logx.Logger

	mu    sync.Mutex
	state state
	sec   *session.Context

	backend net.Conn
	writeCh chan []byte

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSession wraps an already-upgraded WebSocket connection.
func NewSession(conn *websocket.Conn, allow AllowList, priv *rsakeys.PrivateKey, log *logx.Logger) *Session {
	id := uuid.New()
	if log == nil {
		log = logx.Default
	}
	return &Session{
		id:       id,
		nickname: wordlist.Nickname(id[:]),
		conn:     conn,
		allow:    allow,
		priv:     priv,
		log:      log,
		state:    stateAwaitingHandshake,
		stopCh:   make(chan struct{}),
	}
}

// Run drives the session to completion: it returns once the
// WebSocket, and any backend bridge, have both been torn down.
func (s *Session) Run(ctx context.Context) {
	sessionsActive.Inc()
	defer sessionsActive.Dec()
	defer s.stop("session ended")

	s.log.Info("session %s (%s) started", s.nickname, s.id)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.log.Info("session %s: read: %v", s.nickname, err)
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			s.log.Warn("session %s: decode: %v", s.nickname, err)
			continue
		}
		if s.dispatch(ctx, msg) {
			return
		}
	}
}

// dispatch handles one decoded frame and reports whether the session
// should terminate.
func (s *Session) dispatch(ctx context.Context, msg wire.Message) (terminate bool) {
	switch msg.Command {
	case wire.CmdGetServerInfo:
		s.handleGetServerInfo(ctx)
		return false

	case wire.CmdSecureConnect:
		s.mu.Lock()
		ready := s.state == stateAwaitingHandshake
		s.mu.Unlock()
		if !ready {
			s.log.Warn("session %s: SecureConnect out of order, ignoring", s.nickname)
			return false
		}
		return s.handleSecureConnect(ctx, msg)

	case wire.CmdConnect:
		var legacy wire.ConnectPayload
		if err := msg.DecodePayload(&legacy); err != nil {
			s.log.Warn("session %s: malformed legacy Connect: %v", s.nickname, err)
		} else {
			s.log.Warn("session %s: rejected legacy plaintext Connect to %s:%d", s.nickname, legacy.Protocol, legacy.Port)
		}
		handshakeFailuresTotal.WithLabelValues(reasonLegacyConnect).Inc()
		return true

	case wire.CmdData:
		return s.handleData(msg)

	case wire.CmdDisconnect:
		s.log.Info("session %s: peer requested disconnect", s.nickname)
		return true

	case wire.CmdPing:
		return s.handlePing(ctx, msg)

	default:
		s.log.Warn("session %s: ignoring unexpected command %q", s.nickname, msg.Command)
		return false
	}
}

func (s *Session) handleGetServerInfo(ctx context.Context) {
	payload := wire.ServerInfoResponsePayload{
		ServerVersion:   ServerVersion,
		ProtocolVersion: ProtocolVersion,
		AllowedPorts:    []wire.AllowedPort(s.allow),
	}
	resp, err := wire.FromPayload(wire.CmdServerInfoResponse, &payload)
	if err != nil {
		s.log.Error("session %s: encode ServerInfoResponse: %v", s.nickname, err)
		return
	}
	if err := s.send(ctx, resp); err != nil {
		s.log.Warn("session %s: send ServerInfoResponse: %v", s.nickname, err)
	}
}

func (s *Session) handleSecureConnect(ctx context.Context, msg wire.Message) (terminate bool) {
	sec, protocol, port, err := session.AcceptServerHandshake(msg, s.priv)
	if err != nil {
		handshakeFailuresTotal.WithLabelValues(handshakeFailureReason(err)).Inc()
		s.log.Warn("session %s: handshake failed: %v", s.nickname, err)
		return true
	}
	s.mu.Lock()
	s.sec = sec
	s.mu.Unlock()

	// UDP is named in the wire format for future growth but no data
	// plane implements it; reject explicitly rather than relying on
	// an always-empty allow-list entry to do it implicitly.
	if protocol != wire.ProtoTCP || !s.allow.Allows(port, protocol) {
		handshakeFailuresTotal.WithLabelValues(reasonUnauthorized).Inc()
		s.log.Warn("session %s: target %s:%d not allow-listed", s.nickname, protocol, port)
		s.replyConnect(ctx, false, fmt.Sprintf("target %s:%d is not allowed", protocol, port))
		return true
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, backendDialTimeout)
	if err != nil {
		handshakeFailuresTotal.WithLabelValues(reasonBackendDial).Inc()
		s.log.Warn("session %s: dial backend %s: %v", s.nickname, addr, err)
		s.replyConnect(ctx, false, fmt.Sprintf("could not reach %s", addr))
		return true
	}

	s.mu.Lock()
	s.backend = conn
	s.state = stateBridging
	s.mu.Unlock()

	s.log.Success("session %s: bridging to %s", s.nickname, addr)
	s.replyConnect(ctx, true, "")

	s.writeCh = make(chan []byte, 64)
	go s.backendWriter()
	go s.backendReader(ctx)
	return false
}

func (s *Session) replyConnect(ctx context.Context, success bool, message string) {
	resp, err := wire.FromPayload(wire.CmdConnectResponse, &wire.ConnectResponsePayload{
		Success: success,
		Message: message,
	})
	if err != nil {
		s.log.Error("session %s: encode ConnectResponse: %v", s.nickname, err)
		return
	}
	if err := s.sendSealed(ctx, resp); err != nil {
		s.log.Warn("session %s: send ConnectResponse: %v", s.nickname, err)
	}
}

func (s *Session) handleData(msg wire.Message) (terminate bool) {
	s.mu.Lock()
	bridging := s.state == stateBridging
	sec := s.sec
	s.mu.Unlock()
	if !bridging {
		s.log.Warn("session %s: Data frame before bridging, dropping", s.nickname)
		return false
	}
	opened, err := sec.Open(msg)
	if err != nil {
		s.log.Warn("session %s: unseal Data failed: %v", s.nickname, err)
		return true
	}
	select {
	case s.writeCh <- opened.Payload:
		bytesBridgedTotal.WithLabelValues(directionUpload).Add(float64(len(opened.Payload)))
		return false
	case <-s.stopCh:
		return true
	}
}

func (s *Session) handlePing(ctx context.Context, msg wire.Message) (terminate bool) {
	s.mu.Lock()
	sec := s.sec
	s.mu.Unlock()
	if sec == nil {
		return false
	}
	opened, err := sec.Open(msg)
	if err != nil {
		s.log.Warn("session %s: unseal Ping failed: %v", s.nickname, err)
		return true
	}
	pong := wire.NewMessage(wire.CmdPong, opened.Payload)
	if err := s.sendSealed(ctx, pong); err != nil {
		s.log.Warn("session %s: send Pong: %v", s.nickname, err)
		return true
	}
	return false
}

// backendWriter drains the session's queue of decoded Data payloads
// into the backend TCP socket.
func (s *Session) backendWriter() {
	for {
		select {
		case payload, ok := <-s.writeCh:
			if !ok {
				return
			}
			if _, err := s.backend.Write(payload); err != nil {
				s.log.Warn("session %s: backend write: %v", s.nickname, fmt.Errorf("%w: %v", ErrBackendIO, err))
				s.stop("backend write error")
				return
			}
		case <-s.stopCh:
			return
		}
	}
}

// backendReader reads the backend's replies and forwards them as
// sealed Data frames over the WebSocket.
func (s *Session) backendReader(ctx context.Context) {
	buf := make([]byte, backendReadChunk)
	for {
		n, err := s.backend.Read(buf)
		if n > 0 {
			s.mu.Lock()
			sec := s.sec
			s.mu.Unlock()
			sealed, sealErr := sec.Seal(wire.NewMessage(wire.CmdData, append([]byte(nil), buf[:n]...)))
			if sealErr != nil {
				s.log.Warn("session %s: seal backend data: %v", s.nickname, sealErr)
				s.stop("seal error")
				return
			}
			bytesBridgedTotal.WithLabelValues(directionDownload).Add(float64(n))
			if sendErr := s.send(ctx, sealed); sendErr != nil {
				s.log.Warn("session %s: send Data: %v", s.nickname, sendErr)
				s.stop("websocket write error")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.log.Warn("session %s: backend read: %v", s.nickname, fmt.Errorf("%w: %v", ErrBackendIO, err))
			}
			s.stop("backend closed")
			return
		}
	}
}

// send encodes and writes msg as a binary WebSocket frame.
func (s *Session) send(ctx context.Context, msg wire.Message) error {
	b, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("gateway: encode: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		return fmt.Errorf("%w: %v", ErrWsIO, err)
	}
	return nil
}

// sendSealed seals msg's payload (when a key is established) before sending.
func (s *Session) sendSealed(ctx context.Context, msg wire.Message) error {
	s.mu.Lock()
	sec := s.sec
	s.mu.Unlock()
	if sec != nil {
		sealed, err := sec.Seal(msg)
		if err != nil {
			return fmt.Errorf("gateway: seal: %w", err)
		}
		msg = sealed
	}
	return s.send(ctx, msg)
}

// stop tears the session down exactly once: closes the backend
// connection and signals every worker to exit via stopCh. writeCh is
// deliberately never closed — handleData runs concurrently with this
// and a close here would race its send into a panic; stopCh alone is
// enough for backendWriter to notice shutdown.
func (s *Session) stop(reason string) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.state = stateClosed
		backend := s.backend
		s.mu.Unlock()

		close(s.stopCh)
		if backend != nil {
			backend.Close()
		}
		s.conn.Close(websocket.StatusNormalClosure, reason)
	})
}

func handshakeFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrWrongFirstCommand):
		return reasonWrongCommand
	case errors.Is(err, session.ErrPayloadDecode):
		return reasonPayloadDecode
	case errors.Is(err, session.ErrRSADecrypt):
		return reasonRSADecrypt
	case errors.Is(err, session.ErrKeyLength):
		return reasonKeyLength
	default:
		return "unknown"
	}
}
