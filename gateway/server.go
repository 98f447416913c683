package gateway

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/acme/autocert"
	"nhooyr.io/websocket"

	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/internal/logx"
	"mctunnel.dev/wire"
)

// Config holds everything the gateway's key provider, allow-list
// provider, and operator deliver at startup (spec §6's configuration
// surface — the core itself does no file I/O).
type Config struct {
	HTTPAddr  string // e.g. ":8080"
	HTTPSAddr string // empty disables TLS
	Hosts     []string
	CertCache string

	PrivateKey *rsakeys.PrivateKey
	AllowList  AllowList
	Log        *logx.Logger
}

// Server is the gateway's HTTP surface: the WebSocket tunnel endpoint
// at /ws, plus the ambient /health, /info, and /metrics routes,
// structured the way the teacher's own signalling server wires up
// autocert and gziphandler.
type Server struct {
	cfg Config
	log *logx.Logger
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logx.Default
	}
	return &Server{cfg: cfg, log: log}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The tunnel carries no ambient cookie/session state, so CSRF
		// via cross-origin WebSocket handshakes doesn't apply here.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("websocket accept: %v", err)
		return
	}
	sess := NewSession(conn, s.cfg.AllowList, s.cfg.PrivateKey, s.log)
	sess.Run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	payload := wire.ServerInfoResponsePayload{
		ServerVersion:   ServerVersion,
		ProtocolVersion: ProtocolVersion,
		AllowedPorts:    []wire.AllowedPort(s.cfg.AllowList),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// Handler builds the gateway's top-level HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/info", gziphandler.GzipHandler(http.HandlerFunc(s.handleInfo)))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe runs the gateway's HTTP(S) listeners until ctx is
// canceled. If cfg.HTTPSAddr is set, TLS certificates are obtained
// automatically via Let's Encrypt for cfg.Hosts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler := s.Handler()

	if s.cfg.HTTPSAddr == "" {
		srv := &http.Server{
			Addr:         s.cfg.HTTPAddr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Minute, // long-lived WebSocket bridges
			IdleTimeout:  20 * time.Second,
		}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		return srv.ListenAndServe()
	}

	m := &autocert.Manager{
		Cache:      autocert.DirCache(s.cfg.CertCache),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(s.cfg.Hosts...),
	}
	httpsSrv := &http.Server{
		Addr:         s.cfg.HTTPSAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Minute,
		IdleTimeout:  20 * time.Second,
		TLSConfig:    &tls.Config{GetCertificate: m.GetCertificate},
	}
	httpSrv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      m.HTTPHandler(handler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Minute,
		IdleTimeout:  20 * time.Second,
	}
	go func() {
		<-ctx.Done()
		httpsSrv.Close()
		httpSrv.Close()
	}()
	go func() {
		s.log.Error("https listener: %v", httpsSrv.ListenAndServeTLS("", ""))
	}()
	return httpSrv.ListenAndServe()
}

// ParseHosts splits a comma-separated host list, as accepted by the
// gateway CLI's -hosts flag for autocert's HostWhitelist.
func ParseHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		h = strings.TrimSpace(h)
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
