package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics are kept deliberately low-cardinality: no per-session
// labels, since a session's uuid/nickname would make these grow
// without bound over the gateway's lifetime.
var (
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gateway",
		Name:      "sessions_active",
		Help:      "Number of WebSocket sessions currently open.",
	})
	bytesBridgedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "bytes_bridged_total",
		Help:      "Bytes bridged between client and backend, by direction.",
	}, []string{"direction"})
	handshakeFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "handshake_failures_total",
		Help:      "Handshake failures, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(sessionsActive, bytesBridgedTotal, handshakeFailuresTotal)
}

const (
	directionUpload   = "client_to_backend"
	directionDownload = "backend_to_client"
)

const (
	reasonWrongCommand  = "wrong_first_command"
	reasonPayloadDecode = "payload_decode"
	reasonRSADecrypt    = "rsa_decrypt"
	reasonKeyLength     = "key_length"
	reasonUnauthorized  = "unauthorized_target"
	reasonBackendDial   = "backend_dial"
	reasonLegacyConnect = "legacy_connect"
)
