package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so the pipeline and analysis code never
// repeat ticket_id/account_id on every log call.
type LogFields struct {
	TicketID  *int64  // Ticket being deflected
	AccountID *int64  // Owning account
	RunID     *int64  // Analysis run ID
	MessageID *string // Redis stream message ID
	TaskType  *string // Queue task type (e.g., "ticket_deflection")
	Component string  // Component name (OTel semantic convention style, e.g., "deflect.pipeline")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.TicketID != nil {
		result.TicketID = new.TicketID
	}
	if new.AccountID != nil {
		result.AccountID = new.AccountID
	}
	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.TaskType != nil {
		result.TaskType = new.TaskType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// attrs renders the set fields in a stable order.
func (f LogFields) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	if f.TicketID != nil {
		out = append(out, slog.Int64("ticket_id", *f.TicketID))
	}
	if f.AccountID != nil {
		out = append(out, slog.Int64("account_id", *f.AccountID))
	}
	if f.RunID != nil {
		out = append(out, slog.Int64("run_id", *f.RunID))
	}
	if f.MessageID != nil {
		out = append(out, slog.String("message_id", *f.MessageID))
	}
	if f.TaskType != nil {
		out = append(out, slog.String("task_type", *f.TaskType))
	}
	if f.Component != "" {
		out = append(out, slog.String("component", f.Component))
	}
	return out
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
