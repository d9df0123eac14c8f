package goGate

import (
	"io"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/sirupsen/logrus"
)

// AuditEvent is one security-relevant engine event.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// LogSink writes audit events through a logrus logger.
type LogSink = audit.LogSink

// NewChannelSink returns a ChannelSink holding up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger logrus.FieldLogger) LogSink {
	return audit.LogSink{Logger: logger}
}

const (
	AuditLoginSuccess      = "login_success"
	AuditLoginFailure      = "login_failure"
	AuditIdentityRejected  = "identity_rejected"
	AuditLogout            = "logout"
	AuditAccountRegistered = "account_registered"
	AuditUsernameChanged   = "username_changed"
	AuditPasswordReset     = "password_reset"
	AuditRecoveryRequested = "recovery_requested"
	AuditRecoveryThrottled = "recovery_throttled"
	AuditRecoveryConsumed  = "recovery_consumed"
	AuditRecoveryRejected  = "recovery_rejected"
)
