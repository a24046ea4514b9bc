package notification

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// ForEntity unions one notification filter per subscription that reaches
// viewer on medium: its own individual rules and the group rules of its
// super-entities for viewer's type. Each filter is narrowed by the rule's
// action and followed entity, then by viewer's unsubscribes.
func (s *notificationService) ForEntity(ctx context.Context, viewer repo.Entity, medium *repo.Medium) ([]*repo.Notification, error) {
	if medium == nil {
		return nil, ErrMediumRequired
	}
	ctx, span := s.tracer.Start(ctx, "notification.ForEntity", trace.WithAttributes(
		attribute.String("notification.viewer", viewer.String()),
		attribute.String("notification.medium", medium.Name),
	))
	defer span.End()

	supers, err := s.graph.SuperEntities(ctx, viewer)
	if err != nil {
		return nil, err
	}
	subs, err := s.db.Subscription.Query(ctx, repo.MediumIs(medium.ID), repo.ViewerRule(viewer, supers))
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}
	unsubs, err := s.db.Unsubscribe.Query(ctx, repo.SubscriberIs(viewer), repo.MediumIs(medium.ID))
	if err != nil {
		return nil, fmt.Errorf("load unsubscribes: %w", err)
	}

	var filters []*entsql.Predicate
	for _, sub := range subs {
		p, ok, err := s.subscriptionFilter(ctx, sub, unsubs)
		if err != nil {
			return nil, err
		}
		if ok {
			filters = append(filters, p)
		}
	}
	span.SetAttributes(
		attribute.Int("notification.subscriptions", len(subs)),
		attribute.Int("notification.filters", len(filters)),
	)
	if len(filters) == 0 {
		return nil, nil
	}

	ns, err := s.db.Notification.Query(ctx, entsql.Or(filters...))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	return ns, nil
}

// subscriptionFilter returns the notifications sub grants, minus those
// suppressed by unsubs. ok is false when sub grants nothing.
func (s *notificationService) subscriptionFilter(ctx context.Context, sub *repo.Subscription, unsubs []*repo.Unsubscribe) (p *entsql.Predicate, ok bool, err error) {
	var conds []*entsql.Predicate
	if sub.ActionID != nil {
		conds = append(conds, repo.NotificationAction(*sub.ActionID))
	}

	switch {
	case sub.FollowedEntity == nil:
	case sub.FollowedSubentityType != nil:
		members, err := s.graph.SubEntities(ctx, *sub.FollowedEntity, *sub.FollowedSubentityType)
		if err != nil {
			return nil, false, err
		}
		if len(members) == 0 {
			return nil, false, nil
		}
		conds = append(conds, repo.ActorIn(members))
	default:
		conds = append(conds, repo.ActorIs(*sub.FollowedEntity))
	}

	var suppressed []*entsql.Predicate
	for _, u := range unsubs {
		var uc []*entsql.Predicate
		if u.ActionID != nil {
			if sub.ActionID != nil {
				if *sub.ActionID != *u.ActionID {
					continue
				}
			} else {
				uc = append(uc, repo.NotificationAction(*u.ActionID))
			}
		}
		// unfollowing the followed entity itself covers the whole rule
		if u.FollowedEntity != nil && (sub.FollowedEntity == nil || *sub.FollowedEntity != *u.FollowedEntity) {
			uc = append(uc, repo.ActorIs(*u.FollowedEntity))
		}
		if len(uc) == 0 {
			return nil, false, nil
		}
		suppressed = append(suppressed, entsql.And(uc...))
	}
	if len(suppressed) > 0 {
		conds = append(conds, entsql.Not(entsql.Or(suppressed...)))
	}

	switch len(conds) {
	case 0:
		return entsql.ExprP("1 = 1"), true, nil
	case 1:
		return conds[0], true, nil
	default:
		return entsql.And(conds...), true, nil
	}
}
