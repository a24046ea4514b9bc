package reqctx

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey int

const (
	keyEventMeta ctxKey = iota
)

// EventMeta describes the message that triggered the current operation.
type EventMeta struct {
	// RequestID is a UUID v7 string assigned on receipt.
	RequestID  string
	Subject    string
	ReceivedAt time.Time
}

func WithEventMeta(ctx context.Context, meta *EventMeta) context.Context {
	return context.WithValue(ctx, keyEventMeta, meta)
}

// EventMetaFromContext returns nil, false if not set.
func EventMetaFromContext(ctx context.Context) (*EventMeta, bool) {
	meta, ok := ctx.Value(keyEventMeta).(*EventMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns "" outside of an event.
func RequestIDFromContext(ctx context.Context) string {
	meta, ok := EventMetaFromContext(ctx)
	if !ok {
		return ""
	}
	return meta.RequestID
}

// LogAttr is the request_id attribute for ctx, empty outside of an event.
func LogAttr(ctx context.Context) slog.Attr {
	return slog.String("request_id", RequestIDFromContext(ctx))
}
