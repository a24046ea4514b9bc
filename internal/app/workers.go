package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/internal/graph"
	"github.com/Alijeyrad/notifyhub/internal/repo"
	"github.com/Alijeyrad/notifyhub/internal/service/catalog"
	"github.com/Alijeyrad/notifyhub/internal/service/notification"
	"github.com/Alijeyrad/notifyhub/pkg/observability"
	"github.com/Alijeyrad/notifyhub/pkg/reqctx"
)

// WorkerModule registers the NATS event and relationship workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	NC       *nats.Conn
	Log      *slog.Logger
	Catalog  catalog.Service
	NotifSvc notification.Service
	Graph    graph.ReadWriter
}

func RegisterWorkers(p WorkerParams) {
	events := newEventHandler(p.Catalog, p.NotifSvc, p.Log)
	links := newRelationshipHandler(p.Graph, p.Log)
	var subs []*nats.Subscription

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, w := range []struct {
				name    string
				subject string
				handle  func(context.Context, *nats.Msg) error
			}{
				{"event worker", p.Cfg.Nats.Subject, events.handle},
				{"relationship worker", p.Cfg.Nats.RelationshipSubject, links.handle},
			} {
				if w.subject == "" {
					continue
				}
				sub, err := p.NC.QueueSubscribe(w.subject, p.Cfg.Nats.Queue,
					observability.NatsHandler(p.Cfg.Nats.Queue, w.handle))
				if err != nil {
					return fmt.Errorf("subscribe %s: %w", w.subject, err)
				}
				subs = append(subs, sub)
				p.Log.Info(w.name+" started",
					"subject", w.subject,
					"queue", p.Cfg.Nats.Queue,
				)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// connection drain is handled by ProvideNatsClient
			var errs []error
			for _, sub := range subs {
				errs = append(errs, sub.Unsubscribe())
			}
			return errors.Join(errs...)
		},
	})
}

// ---------------------------------------------------------------------------
// event_worker
// ---------------------------------------------------------------------------

// Event is the JSON envelope published on the event subjects.
type Event struct {
	EventID       string         `json:"event_id,omitempty"`
	Actor         repo.Entity    `json:"actor"`
	Action        string         `json:"action"`
	ActionObject  *repo.Entity   `json:"action_object,omitempty"`
	Target        *repo.Entity   `json:"target,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Mediums       []string       `json:"mediums,omitempty"`
	Expires       *time.Time     `json:"expires,omitempty"`
	ExpiresIn     int64          `json:"expires_in,omitempty"` // seconds
	SubentityType string         `json:"subentity_type,omitempty"`
}

// EventResult is sent back when the publisher asked for a reply.
type EventResult struct {
	RequestID      string `json:"request_id"`
	NotificationID int64  `json:"notification_id,omitempty"`
	Created        bool   `json:"created"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	Error          string `json:"error,omitempty"`
}

var errInvalidEvent = errors.New("invalid event")

type eventHandler struct {
	catalog       catalog.Service
	notifications notification.Service
	log           *slog.Logger
}

func newEventHandler(cat catalog.Service, notifications notification.Service, log *slog.Logger) *eventHandler {
	return &eventHandler{catalog: cat, notifications: notifications, log: log}
}

func (h *eventHandler) handle(ctx context.Context, msg *nats.Msg) error {
	requestID := newRequestID()
	ctx = reqctx.WithEventMeta(ctx, &reqctx.EventMeta{
		RequestID:  requestID,
		Subject:    msg.Subject,
		ReceivedAt: time.Now(),
	})
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("messaging.message.id", requestID))
	log := h.log.With("request_id", requestID, "subject", msg.Subject)

	res, err := h.process(ctx, msg.Data)
	res.RequestID = requestID
	switch {
	case err != nil:
		res.Error = err.Error()
		log.Warn("event_worker: dropping event", "err", err)
	case res.Duplicate:
		log.Debug("event_worker: duplicate event acknowledged")
	case !res.Created:
		log.Debug("event_worker: no subscribers")
	default:
		log.Info("event_worker: notification created", "notification_id", res.NotificationID)
	}

	if msg.Reply != "" {
		data, merr := json.Marshal(res)
		if merr == nil {
			merr = msg.Respond(data)
		}
		if merr != nil {
			log.Warn("event_worker: reply failed", "err", merr)
		}
	}
	return err
}

func (h *eventHandler) process(ctx context.Context, data []byte) (EventResult, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return EventResult{}, fmt.Errorf("%w: %v", errInvalidEvent, err)
	}
	if ev.Actor.IsZero() || ev.Action == "" {
		return EventResult{}, fmt.Errorf("%w: actor and action are required", errInvalidEvent)
	}
	if ev.ExpiresIn < 0 {
		return EventResult{}, fmt.Errorf("%w: negative expires_in", errInvalidEvent)
	}

	action, err := h.catalog.ActionByName(ctx, ev.Action)
	if err != nil {
		return EventResult{}, fmt.Errorf("resolve action %q: %w", ev.Action, err)
	}

	var mediums []*repo.Medium
	for _, name := range ev.Mediums {
		m, err := h.catalog.MediumByName(ctx, name)
		if err != nil {
			return EventResult{}, fmt.Errorf("resolve medium %q: %w", name, err)
		}
		mediums = append(mediums, m)
	}

	n, err := h.notifications.Create(ctx, notification.CreateRequest{
		Actor:         ev.Actor,
		Action:        action,
		ActionObject:  ev.ActionObject,
		Target:        ev.Target,
		Context:       ev.Context,
		Mediums:       mediums,
		Expires:       ev.Expires,
		ExpiresIn:     time.Duration(ev.ExpiresIn) * time.Second,
		SubentityType: ev.SubentityType,
		EventID:       ev.EventID,
	})
	if errors.Is(err, notification.ErrDuplicateEvent) {
		return EventResult{Duplicate: true}, nil
	}
	if err != nil {
		return EventResult{}, err
	}
	if n == nil {
		return EventResult{}, nil
	}
	return EventResult{NotificationID: n.ID, Created: true}, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ---------------------------------------------------------------------------
// relationship_worker
// ---------------------------------------------------------------------------

// RelationshipChange links or unlinks sub under super.
type RelationshipChange struct {
	Op    string      `json:"op"` // link, unlink
	Super repo.Entity `json:"super"`
	Sub   repo.Entity `json:"sub"`
}

type relationshipHandler struct {
	graph graph.Writer
	log   *slog.Logger
}

func newRelationshipHandler(g graph.Writer, log *slog.Logger) *relationshipHandler {
	return &relationshipHandler{graph: g, log: log}
}

func (h *relationshipHandler) handle(ctx context.Context, msg *nats.Msg) error {
	log := h.log.With("request_id", newRequestID(), "subject", msg.Subject)
	if err := h.process(ctx, msg.Data); err != nil {
		log.Warn("relationship_worker: dropping change", "err", err)
		return err
	}
	log.Debug("relationship_worker: applied")
	return nil
}

func (h *relationshipHandler) process(ctx context.Context, data []byte) error {
	var ch RelationshipChange
	if err := json.Unmarshal(data, &ch); err != nil {
		return fmt.Errorf("%w: %v", errInvalidEvent, err)
	}
	if ch.Super.IsZero() || ch.Sub.IsZero() {
		return fmt.Errorf("%w: super and sub are required", errInvalidEvent)
	}
	switch ch.Op {
	case "link":
		return h.graph.Link(ctx, ch.Super, ch.Sub)
	case "unlink":
		return h.graph.Unlink(ctx, ch.Super, ch.Sub)
	default:
		return fmt.Errorf("%w: unknown op %q", errInvalidEvent, ch.Op)
	}
}
