package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// ActionRecord captures one user-initiated action for the audit log.
type ActionRecord struct {
	Action string

	// UserID is the logged-in user, 0 when logged out.
	UserID int64

	// TargetUserID is the user whose schedule is affected when it differs
	// from UserID (admin operations).
	TargetUserID int64

	// EntryID is the schedule entry involved, if any.
	EntryID int64

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewActionRecord starts timing an action.
func NewActionRecord(action string) *ActionRecord {
	return &ActionRecord{
		Action:    action,
		StartTime: time.Now(),
	}
}

// WithUser sets the acting user.
func (r *ActionRecord) WithUser(userID int64) *ActionRecord {
	r.UserID = userID
	return r
}

// WithTarget sets the user whose schedule the action affects.
func (r *ActionRecord) WithTarget(userID int64) *ActionRecord {
	r.TargetUserID = userID
	return r
}

// WithEntry sets the schedule entry id.
func (r *ActionRecord) WithEntry(entryID int64) *ActionRecord {
	r.EntryID = entryID
	return r
}

// WithSpanContext copies trace identifiers from the current span.
func (r *ActionRecord) WithSpanContext(ctx context.Context) *ActionRecord {
	r.TraceID = GetTraceID(ctx)
	r.SpanID = GetSpanID(ctx)
	return r
}

// Complete marks the action finished. A nil err means success.
func (r *ActionRecord) Complete(err error) *ActionRecord {
	r.Duration = time.Since(r.StartTime)
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Status returns "success" or "error".
func (r *ActionRecord) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the structured attributes for the record.
func (r *ActionRecord) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", r.Action),
		slog.Duration("duration", r.Duration),
		slog.Bool("success", r.Success),
	}
	if r.UserID > 0 {
		attrs = append(attrs, slog.Int64("user_id", r.UserID))
	}
	if r.TargetUserID > 0 && r.TargetUserID != r.UserID {
		attrs = append(attrs, slog.Int64("target_user_id", r.TargetUserID))
	}
	if r.EntryID > 0 {
		attrs = append(attrs, slog.Int64("entry_id", r.EntryID))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}
	return attrs
}

// AuditLogger writes ActionRecords to a slog.Logger.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger.With("component", "audit"),
		enabled: config.Enabled,
	}
}

// Log writes the record. Failed actions are logged at warn level.
func (al *AuditLogger) Log(r *ActionRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	attrs := r.LogAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if r.Success {
		al.logger.Info("action_completed", args...)
	} else {
		al.logger.Warn("action_failed", args...)
	}
}
