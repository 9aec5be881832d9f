package goWallet

import (
	"context"
	"io"
	"log/slog"

	"github.com/MrEthical07/goWallet/internal/audit"
)

const (
	auditEventSessionRestored   = "session_restored"
	auditEventSessionDegraded   = "session_degraded"
	auditEventSessionRejected   = "session_rejected"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventChallengeIssued   = "challenge_issued"
	auditEventChallengeFailure  = "challenge_failure"
	auditEventLogout            = "logout"
	auditEventModeChanged       = "mode_changed"
	auditEventTransferSubmitted = "transfer_submitted"
	auditEventTransferRejected  = "transfer_rejected"
	auditEventJobSucceeded      = "job_succeeded"
	auditEventJobFailed         = "job_failed"
)

// AuditEvent is the record delivered to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives audit events from a background dispatcher.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }

func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, userID, jobID string, err error, metadata map[string]string) {
	if c.audit == nil {
		return
	}
	e := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Mode:      c.Mode().String(),
		JobID:     jobID,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.audit.Emit(ctx, e)
}
