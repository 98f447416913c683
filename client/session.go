package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/internal/logx"
	"mctunnel.dev/session"
	"mctunnel.dev/wire"
)

// PingInterval is the cadence of the periodic liveness pinger (spec §4.5).
const PingInterval = 5 * time.Second

const uploadReadChunk = 8 << 10 // 8 KiB, per spec §4.5

// ErrDial is returned when the WebSocket dial itself fails.
var ErrDial = errors.New("client: could not dial gateway")

// ErrRejected is returned when the gateway's ConnectResponse reports failure.
var ErrRejected = errors.New("client: gateway rejected connection")

// ErrLocalIO and ErrWsIO distinguish which side of the bridge broke,
// for callers that want to errors.Is past the logged string.
var (
	ErrLocalIO = errors.New("client: local io error")
	ErrWsIO    = errors.New("client: websocket io error")
)

// Config parameterizes one client tunnel session. All fields are
// delivered by the CLI/front-end collaborator per spec §6; the core
// does no file I/O or flag parsing.
type Config struct {
	URL        string
	ServerKey  *rsakeys.PublicKey
	Protocol   wire.Protocol
	Port       uint16
	PingPeriod time.Duration
	Stats      StatsSink
	Log        *logx.Logger
}

// Session bridges one accepted local TCP connection to the gateway
// over a single WebSocket, per spec §4.5.
type Session struct {
	id    string
	cfg   Config
	local net.Conn
	log   *logx.Logger

	uploadTotal   atomic.Int64
	downloadTotal atomic.Int64
	lastRTTMs     atomic.Int64

	pingReq chan struct{}
}

// New builds a session for one accepted local TCP connection. id is
// the session's nickname/identifier, used in logs and by the Registry.
func New(id string, cfg Config, local net.Conn) *Session {
	if cfg.PingPeriod == 0 {
		cfg.PingPeriod = PingInterval
	}
	log := cfg.Log
	if log == nil {
		log = logx.Default
	}
	s := &Session{
		id:      id,
		cfg:     cfg,
		local:   local,
		log:     log,
		pingReq: make(chan struct{}, 1),
	}
	s.lastRTTMs.Store(-1)
	return s
}

// RequestPing enqueues a manual ping, non-blocking. It reports false
// if the session has already terminated (its request channel closed),
// so the Registry can prune it.
func (s *Session) RequestPing() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case s.pingReq <- struct{}{}:
	default:
	}
	return true
}

// Run dials the gateway, performs the handshake, then bridges bytes
// until either side disconnects or ctx is canceled. It always closes
// the local connection before returning.
func (s *Session) Run(ctx context.Context) error {
	defer s.local.Close()
	defer close(s.pingReq)

	conn, _, err := websocket.Dial(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDial, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	sec, err := s.handshake(ctx, conn)
	if err != nil {
		return err
	}

	s.log.Success("session %s: bridging", s.id)
	return s.bridge(ctx, conn, sec)
}

// handshake sends the client's SecureConnect and waits for exactly
// one ConnectResponse, per spec §4.5 steps 2-3.
func (s *Session) handshake(ctx context.Context, conn *websocket.Conn) (*session.Context, error) {
	sec, msg, err := session.BuildClientHandshake(s.cfg.ServerKey, s.cfg.Protocol, s.cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("client: build handshake: %w", err)
	}
	b, err := wire.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("client: encode handshake: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		return nil, fmt.Errorf("client: send handshake: %w: %v", ErrWsIO, err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("client: await ConnectResponse: %w: %v", ErrWsIO, err)
	}
	reply, err := wire.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("client: decode ConnectResponse: %w", err)
	}
	opened, err := sec.Open(reply)
	if err != nil {
		return nil, fmt.Errorf("client: unseal ConnectResponse: %w", err)
	}
	if opened.Command != wire.CmdConnectResponse {
		return nil, fmt.Errorf("client: expected ConnectResponse, got %q", opened.Command)
	}
	var payload wire.ConnectResponsePayload
	if err := opened.DecodePayload(&payload); err != nil {
		return nil, fmt.Errorf("client: decode ConnectResponsePayload: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, payload.Message)
	}
	return sec, nil
}

// bridge runs the three cooperating activities described in spec
// §4.5 step 5-6: an uploader, a periodic pinger, and the main arbiter.
func (s *Session) bridge(ctx context.Context, conn *websocket.Conn, sec *session.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outCh := make(chan wire.Message, 64)
	inCh := make(chan wire.Message, 64)
	readErrCh := make(chan error, 1)

	go s.uploader(ctx, outCh)
	go s.pinger(ctx, outCh)
	go s.reader(ctx, conn, inCh, readErrCh)
	go s.sampler(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrCh:
			return err

		case msg, ok := <-inCh:
			if !ok {
				return nil
			}
			if terminate, err := s.handleInbound(msg, sec); terminate {
				return err
			}

		case msg, ok := <-outCh:
			if !ok {
				return nil
			}
			if err := s.sendSealed(ctx, conn, sec, msg); err != nil {
				return fmt.Errorf("client: send: %w", err)
			}
			if msg.Command == wire.CmdDisconnect {
				return nil
			}

		case <-s.pingReq:
			ping, err := wire.FromPayload(wire.CmdPing, &wire.PingPayload{TimestampMS: nowMillis()})
			if err != nil {
				continue
			}
			if err := s.sendSealed(ctx, conn, sec, ping); err != nil {
				return fmt.Errorf("client: send manual ping: %w", err)
			}
		}
	}
}

func (s *Session) handleInbound(msg wire.Message, sec *session.Context) (terminate bool, err error) {
	opened, err := sec.Open(msg)
	if err != nil {
		return true, fmt.Errorf("client: unseal inbound: %w", err)
	}
	switch opened.Command {
	case wire.CmdData:
		s.downloadTotal.Add(int64(len(opened.Payload)))
		if _, werr := s.local.Write(opened.Payload); werr != nil {
			return true, fmt.Errorf("%w: %v", ErrLocalIO, werr)
		}
		return false, nil
	case wire.CmdPong:
		var ping wire.PingPayload
		if derr := opened.DecodePayload(&ping); derr == nil {
			rtt := int64(nowMillis()) - int64(ping.TimestampMS)
			if rtt >= 0 {
				s.lastRTTMs.Store(rtt)
			}
		}
		return false, nil
	case wire.CmdDisconnect:
		return true, nil
	default:
		s.log.Warn("session %s: ignoring unexpected command %q", s.id, opened.Command)
		return false, nil
	}
}

func (s *Session) uploader(ctx context.Context, outCh chan<- wire.Message) {
	buf := make([]byte, uploadReadChunk)
	for {
		n, err := s.local.Read(buf)
		if n > 0 {
			s.uploadTotal.Add(int64(n))
			data := wire.NewMessage(wire.CmdData, append([]byte(nil), buf[:n]...))
			select {
			case outCh <- data:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.log.Warn("session %s: local read: %v", s.id, fmt.Errorf("%w: %v", ErrLocalIO, err))
			}
			select {
			case outCh <- wire.NewMessage(wire.CmdDisconnect, nil):
			case <-ctx.Done():
			}
			return
		}
	}
}

func (s *Session) pinger(ctx context.Context, outCh chan<- wire.Message) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ping, err := wire.FromPayload(wire.CmdPing, &wire.PingPayload{TimestampMS: nowMillis()})
			if err != nil {
				continue
			}
			select {
			case outCh <- ping:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) reader(ctx context.Context, conn *websocket.Conn, inCh chan<- wire.Message, errCh chan<- error) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case errCh <- fmt.Errorf("%w: %v", ErrWsIO, err):
			case <-ctx.Done():
			}
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			s.log.Warn("session %s: decode: %v", s.id, err)
			continue
		}
		select {
		case inCh <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) sampler(ctx context.Context) {
	if s.cfg.Stats == nil {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastUp, lastDown int64
	for {
		select {
		case <-ticker.C:
			up, down := s.uploadTotal.Load(), s.downloadTotal.Load()
			snap := StatsSnapshot{
				UploadTotal:   up,
				DownloadTotal: down,
				UploadSpeed:   up - lastUp,
				DownloadSpeed: down - lastDown,
				RTTMs:         s.lastRTTMs.Load(),
			}
			lastUp, lastDown = up, down
			if err := s.cfg.Stats.Push(s.id, snap); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) sendSealed(ctx context.Context, conn *websocket.Conn, sec *session.Context, msg wire.Message) error {
	sealed, err := sec.Seal(msg)
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	b, err := wire.Encode(sealed)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		return fmt.Errorf("%w: %v", ErrWsIO, err)
	}
	return nil
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
