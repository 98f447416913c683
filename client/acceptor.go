package client

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"

	"mctunnel.dev/internal/logx"
	"mctunnel.dev/wordlist"
)

// AcceptorConfig parameterizes the local TCP listener and the gateway
// connections it spawns for each accepted socket.
type AcceptorConfig struct {
	BindAddr string // e.g. "127.0.0.1:25565"
	Session  Config
	Log      *logx.Logger
}

// Acceptor is the client-side entry point: it binds a local TCP
// listener and spawns one independent Session per accepted
// connection, per spec §4.5.
type Acceptor struct {
	cfg      AcceptorConfig
	log      *logx.Logger
	registry *Registry
	manual   chan struct{}
}

// NewAcceptor builds an Acceptor. Call Run to start serving.
func NewAcceptor(cfg AcceptorConfig) *Acceptor {
	log := cfg.Log
	if log == nil {
		log = logx.Default
	}
	return &Acceptor{
		cfg:      cfg,
		log:      log,
		registry: NewRegistry(),
		manual:   make(chan struct{}, 16),
	}
}

// ManualPing is the manual-ping source collaborator named in spec §6:
// writing to it triggers an immediate Ping on every live session.
func (a *Acceptor) ManualPing() chan<- struct{} {
	return a.manual
}

// Registry exposes the acceptor's live-session map, e.g. for a
// front-end to report connection counts.
func (a *Acceptor) Registry() *Registry {
	return a.registry
}

// Run binds the listener and serves until ctx is canceled or Listen fails.
func (a *Acceptor) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", a.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("client: listen %s: %w", a.cfg.BindAddr, err)
	}
	defer ln.Close()
	a.log.Info("listening on %s", a.cfg.BindAddr)

	go a.fanoutManualPings(ctx)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("client: accept: %w", err)
			}
		}
		go a.serve(ctx, conn)
	}
}

func (a *Acceptor) serve(ctx context.Context, conn net.Conn) {
	id := uuid.New()
	nickname := wordlist.Nickname(id[:])
	sess := New(nickname, a.cfg.Session, conn)
	a.registry.Add(nickname, sess)
	defer a.registry.Remove(nickname)

	a.log.Info("session %s: accepted %s", nickname, conn.RemoteAddr())
	if err := sess.Run(ctx); err != nil {
		a.log.Warn("session %s: ended: %v", nickname, err)
		return
	}
	a.log.Info("session %s: closed", nickname)
}

// fanoutManualPings drains the manual-ping channel and forwards each
// request to every live session, pruning dead entries.
func (a *Acceptor) fanoutManualPings(ctx context.Context) {
	for {
		select {
		case <-a.manual:
			a.registry.PingAll()
		case <-ctx.Done():
			return
		}
	}
}
