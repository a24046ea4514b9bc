package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/notifyhub/internal/graph"
	"github.com/Alijeyrad/notifyhub/internal/render"
	"github.com/Alijeyrad/notifyhub/internal/repo"
	"github.com/Alijeyrad/notifyhub/internal/service/subscription"
	"github.com/Alijeyrad/notifyhub/pkg/reqctx"
)

const instrumentationName = "github.com/Alijeyrad/notifyhub/internal/service/notification"

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// CreateRequest describes an event to fan out.
type CreateRequest struct {
	Actor        repo.Entity
	Action       *repo.Action
	ActionObject *repo.Entity
	Target       *repo.Entity
	Context      map[string]any

	// Mediums restricts delivery to a subset of the subscribed mediums.
	// Nil means every subscribed medium.
	Mediums []*repo.Medium

	// At most one of Expires and ExpiresIn may be set.
	Expires   *time.Time
	ExpiresIn time.Duration

	// SubentityType marks a group broadcast: Actor is the group and the
	// audience is resolved from group rules for this type.
	SubentityType string

	// EventID deduplicates creation. Empty generates one from the action
	// name, the creation time and a random suffix.
	EventID string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Create records the notification and one delivery row per medium in a
	// single transaction. It returns nil and no error when nobody is
	// subscribed.
	Create(ctx context.Context, req CreateRequest) (*repo.Notification, error)
	// ForEntity returns what viewer is entitled to see on medium, oldest
	// first, each notification once.
	ForEntity(ctx context.Context, viewer repo.Entity, medium *repo.Medium) ([]*repo.Notification, error)
	// ForMedium returns the notifications fanned out to medium, oldest first.
	ForMedium(ctx context.Context, medium *repo.Medium, includeSeen bool) ([]*repo.Notification, error)
	// MarkSeen stamps unseen deliveries and returns how many changed.
	MarkSeen(ctx context.Context, ids []int64, medium *repo.Medium) (int, error)
	Deliveries(ctx context.Context, id int64) ([]*repo.Delivery, error)
	Render(ctx context.Context, ns []*repo.Notification, medium *repo.Medium, html bool) ([]string, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type Option func(*notificationService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *notificationService) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *notificationService) { s.log = log }
}

type notificationService struct {
	db        *repo.Client
	subs      subscription.Service
	graph     graph.Client
	renderers *render.Registry
	now       func() time.Time
	log       *slog.Logger

	tracer     trace.Tracer
	created    metric.Int64Counter
	deliveries metric.Int64Counter
}

func New(db *repo.Client, subs subscription.Service, g graph.Client, renderers *render.Registry, opts ...Option) Service {
	s := &notificationService{
		db:        db,
		subs:      subs,
		graph:     g,
		renderers: renderers,
		now:       time.Now,
		log:       slog.Default(),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter(instrumentationName)
	s.created, _ = meter.Int64Counter(
		"notifyhub_notifications_created",
		metric.WithDescription("Notifications created by fan-out"),
		metric.WithUnit("{notification}"),
	)
	s.deliveries, _ = meter.Int64Counter(
		"notifyhub_notification_deliveries",
		metric.WithDescription("Delivery rows created by fan-out"),
		metric.WithUnit("{delivery}"),
	)
	return s
}

func (s *notificationService) Create(ctx context.Context, req CreateRequest) (n *repo.Notification, err error) {
	if req.Action == nil {
		return nil, ErrNoAction
	}
	if req.Expires != nil && req.ExpiresIn != 0 {
		return nil, ErrExpiresConflict
	}

	ctx, span := s.tracer.Start(ctx, "notification.Create", trace.WithAttributes(
		attribute.String("notification.action", req.Action.Name),
		attribute.String("notification.actor", req.Actor.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	mediums, err := s.subs.MediumsSubscribed(ctx, req.Action, req.Actor, req.SubentityType)
	if err != nil {
		return nil, fmt.Errorf("resolve mediums: %w", err)
	}
	if req.Mediums != nil {
		wanted := lo.SliceToMap(req.Mediums, func(m *repo.Medium) (int64, bool) { return m.ID, true })
		mediums = lo.Filter(mediums, func(m *repo.Medium, _ int) bool { return wanted[m.ID] })
	}
	if len(mediums) == 0 {
		s.log.DebugContext(ctx, "no subscribed mediums, nothing to create",
			slog.String("action", req.Action.Name),
			slog.String("actor", req.Actor.String()),
			reqctx.LogAttr(ctx),
		)
		return nil, nil
	}
	mediumIDs := lo.Map(mediums, func(m *repo.Medium, _ int) int64 { return m.ID })

	now := s.now().UTC()
	var expires *time.Time
	switch {
	case req.Expires != nil:
		t := req.Expires.UTC()
		expires = &t
	case req.ExpiresIn != 0:
		t := now.Add(req.ExpiresIn)
		expires = &t
	}
	eventID := req.EventID
	if eventID == "" {
		eventID = fmt.Sprintf("%s-%d-%s", req.Action.Name, now.UnixNano(), uuid.NewString()[:8])
	}
	span.SetAttributes(attribute.String("notification.event_id", eventID))

	tx, err := s.db.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	n, err = tx.Notification.Create(ctx, &repo.Notification{
		Actor:        req.Actor,
		ActionID:     req.Action.ID,
		ActionObject: req.ActionObject,
		Target:       req.Target,
		Context:      req.Context,
		TimeCreated:  now,
		TimeExpires:  expires,
		EventID:      eventID,
	})
	if err != nil {
		if repo.IsConstraintError(err) {
			return nil, ErrDuplicateEvent
		}
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if err = tx.Delivery.CreateBulk(ctx, n.ID, mediumIDs...); err != nil {
		return nil, fmt.Errorf("create deliveries: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	n.Action = req.Action
	attrs := metric.WithAttributes(attribute.String("action", req.Action.Name))
	s.created.Add(ctx, 1, attrs)
	s.deliveries.Add(ctx, int64(len(mediumIDs)), attrs)
	return n, nil
}

func (s *notificationService) ForMedium(ctx context.Context, medium *repo.Medium, includeSeen bool) ([]*repo.Notification, error) {
	if medium == nil {
		return nil, ErrMediumRequired
	}
	ids, err := s.db.Delivery.NotificationIDs(ctx, medium.ID, !includeSeen)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	ns, err := s.db.Notification.Query(ctx, repo.NotificationIDIn(ids...))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

func (s *notificationService) MarkSeen(ctx context.Context, ids []int64, medium *repo.Medium) (int, error) {
	if medium == nil {
		return 0, ErrMediumRequired
	}
	n, err := s.db.Delivery.MarkSeen(ctx, medium.ID, s.now(), lo.Uniq(ids)...)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return n, nil
}

func (s *notificationService) Deliveries(ctx context.Context, id int64) ([]*repo.Delivery, error) {
	ds, err := s.db.Delivery.Query(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return ds, nil
}

func (s *notificationService) Render(ctx context.Context, ns []*repo.Notification, medium *repo.Medium, html bool) ([]string, error) {
	out, err := s.renderers.ForMedium(medium).Render(ctx, ns, html)
	if err != nil {
		return nil, fmt.Errorf("render notifications: %w", err)
	}
	return out, nil
}
