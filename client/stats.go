package client

import "mctunnel.dev/internal/logx"

// StatsSnapshot is one 1 Hz sample of a session's traffic counters,
// per spec §6's stats sink collaborator.
type StatsSnapshot struct {
	UploadTotal   int64
	DownloadTotal int64
	UploadSpeed   int64 // bytes/sec over the last sampling interval
	DownloadSpeed int64
	RTTMs         int64 // -1 if no Pong has been observed yet
}

// StatsSink receives per-session snapshots. A push failure ends that
// session's sampler (spec §6): the sink is assumed to represent a
// disconnected external collaborator once it starts erroring.
type StatsSink interface {
	Push(id string, snapshot StatsSnapshot) error
}

// LoggingStatsSink is the default sink: it logs every snapshot at
// INFO level. Production front-ends are expected to supply their own.
type LoggingStatsSink struct {
	log *logx.Logger
}

// NewLoggingStatsSink builds a StatsSink that logs through log.
func NewLoggingStatsSink(log *logx.Logger) *LoggingStatsSink {
	return &LoggingStatsSink{log: log}
}

func (s *LoggingStatsSink) Push(id string, snap StatsSnapshot) error {
	s.log.Info("session %s: up=%dB/s down=%dB/s rtt=%dms total=%d/%d",
		id, snap.UploadSpeed, snap.DownloadSpeed, snap.RTTMs, snap.UploadTotal, snap.DownloadTotal)
	return nil
}
