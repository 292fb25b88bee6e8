package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/iperka/paporg-sub001/internal/broadcast"
)

// LogEvent is one structured log record, broadcast for any UI or
// external consumer that wants to tail daemon activity live.
type LogEvent struct {
	Timestamp time.Time
	Level     string
	Target    string
	Message   string
}

// LogBroadcaster is broadcast.Broadcaster[LogEvent] under a
// domain-specific name, mirroring JobProgressBroadcaster.
type LogBroadcaster = broadcast.Broadcaster[LogEvent]

// NewLogBroadcaster constructs the shared log-event channel.
func NewLogBroadcaster() *LogBroadcaster {
	return broadcast.New[LogEvent]()
}

// BroadcastHandler is an slog.Handler that forwards every record to a
// LogBroadcaster in addition to delegating to an underlying handler.
// This is the idiomatic Go equivalent of wrapping a log writer: slog
// already hands us structured fields, so there's no log-line parsing
// step the way a plain io.Writer-based logger would need.
type BroadcastHandler struct {
	next slog.Handler
	bc   *LogBroadcaster
}

// NewBroadcastHandler wraps next so every record it receives is also
// pushed onto bc.
func NewBroadcastHandler(next slog.Handler, bc *LogBroadcaster) *BroadcastHandler {
	return &BroadcastHandler{next: next, bc: bc}
}

func (h *BroadcastHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *BroadcastHandler) Handle(ctx context.Context, r slog.Record) error {
	target := "paporg"
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			target = a.Value.String()
			return false
		}
		return true
	})
	h.bc.Publish(LogEvent{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Target:    target,
		Message:   r.Message,
	})
	return h.next.Handle(ctx, r)
}

func (h *BroadcastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BroadcastHandler{next: h.next.WithAttrs(attrs), bc: h.bc}
}

func (h *BroadcastHandler) WithGroup(name string) slog.Handler {
	return &BroadcastHandler{next: h.next.WithGroup(name), bc: h.bc}
}
