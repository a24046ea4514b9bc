// Package reqctx carries per-event metadata through a context.
//
// The event worker stores an EventMeta for every NATS message it handles;
// services read it back to correlate their logs with the message:
//
//	ctx = reqctx.WithEventMeta(ctx, &reqctx.EventMeta{
//	    RequestID:  "0190b6f2-...",
//	    Subject:    "notifyhub.events.comment",
//	    ReceivedAt: time.Now(),
//	})
//
//	log.InfoContext(ctx, "created", reqctx.LogAttr(ctx))
//
// Context keys are unexported types to prevent collisions.
package reqctx
