package subscription

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"

	"github.com/Alijeyrad/notifyhub/internal/graph"
	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// SubscribeRequest describes an opt-in rule. A nil ActionID subscribes to
// every action. A non-empty SubentityType makes it a group rule covering the
// sub-entities of that type of Entity.
type SubscribeRequest struct {
	Entity                repo.Entity
	MediumID              int64
	ActionID              *int64
	SubentityType         string
	FollowedEntity        *repo.Entity
	FollowedSubentityType string
}

// UnsubscribeRequest describes an opt-out rule. Nil ActionID and nil
// FollowedEntity match any value.
type UnsubscribeRequest struct {
	Entity         repo.Entity
	MediumID       int64
	ActionID       *int64
	FollowedEntity *repo.Entity
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

// Service resolves who is subscribed to what, and manages the rules.
//
// Resolution has two modes. With an empty subentityType the entity is a
// concrete viewer: its own individual rules and the group rules of its
// super-entities count, and its unsubscribes are subtracted. With a
// subentityType the entity is a group being broadcast to: the group rules of
// every super-entity of its sub-entities of that type count, and no
// unsubscribes apply.
type Service interface {
	MediumsSubscribed(ctx context.Context, action *repo.Action, entity repo.Entity, subentityType string) ([]*repo.Medium, error)
	IsSubscribed(ctx context.Context, action *repo.Action, medium *repo.Medium, entity repo.Entity, subentityType string) (bool, error)
	FilterNotSubscribed(ctx context.Context, action *repo.Action, medium *repo.Medium, entities []repo.Entity) ([]repo.Entity, error)
	IsUnsubscribed(ctx context.Context, action *repo.Action, medium *repo.Medium, entity repo.Entity) (bool, error)

	Subscribe(ctx context.Context, req SubscribeRequest) (*repo.Subscription, error)
	Unsubscribe(ctx context.Context, req UnsubscribeRequest) (*repo.Unsubscribe, error)
	RemoveSubscription(ctx context.Context, id int64) error
	RemoveUnsubscribe(ctx context.Context, id int64) error
	SubscriptionsFor(ctx context.Context, entity repo.Entity) ([]*repo.Subscription, error)
	UnsubscribesFor(ctx context.Context, entity repo.Entity) ([]*repo.Unsubscribe, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type subscriptionService struct {
	db    *repo.Client
	graph graph.Client
}

func New(db *repo.Client, g graph.Client) Service {
	return &subscriptionService{db: db, graph: g}
}

func (s *subscriptionService) MediumsSubscribed(ctx context.Context, action *repo.Action, entity repo.Entity, subentityType string) ([]*repo.Medium, error) {
	if action == nil {
		return nil, ErrActionRequired
	}

	var (
		ids []int64
		err error
	)
	if subentityType == "" {
		ids, err = s.viewerMediumIDs(ctx, action, entity)
	} else {
		ids, err = s.groupMediumIDs(ctx, action, entity, subentityType)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	ms, err := s.db.Medium.Query(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("load mediums: %w", err)
	}
	return ms, nil
}

func (s *subscriptionService) viewerMediumIDs(ctx context.Context, action *repo.Action, viewer repo.Entity) ([]int64, error) {
	rule, err := s.viewerRule(ctx, viewer)
	if err != nil {
		return nil, err
	}
	ids, err := s.db.Subscription.MediumIDs(ctx, repo.ActionMatches(action.ID), rule)
	if err != nil {
		return nil, fmt.Errorf("resolve subscribed mediums: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	optedOut, err := s.db.Unsubscribe.MediumIDs(ctx,
		repo.SubscriberIs(viewer),
		repo.ActionMatches(action.ID),
		repo.Unscoped(),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve unsubscribed mediums: %w", err)
	}
	return lo.Without(ids, optedOut...), nil
}

func (s *subscriptionService) groupMediumIDs(ctx context.Context, action *repo.Action, group repo.Entity, subentityType string) ([]int64, error) {
	supers, err := s.supersOfSubs(ctx, group, subentityType)
	if err != nil {
		return nil, err
	}
	if len(supers) == 0 {
		return nil, nil
	}
	ids, err := s.db.Subscription.MediumIDs(ctx,
		repo.ActionMatches(action.ID),
		repo.SubscriberIn(supers),
		repo.GroupRuleFor(subentityType),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve group mediums: %w", err)
	}
	return ids, nil
}

func (s *subscriptionService) viewerRule(ctx context.Context, viewer repo.Entity) (*entsql.Predicate, error) {
	supers, err := s.graph.SuperEntities(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return repo.ViewerRule(viewer, supers), nil
}

// supersOfSubs returns every super-entity of the sub-entities of group
// having the given type, group itself included when it has any.
func (s *subscriptionService) supersOfSubs(ctx context.Context, group repo.Entity, subentityType string) ([]repo.Entity, error) {
	subs, err := s.graph.SubEntities(ctx, group, subentityType)
	if err != nil {
		return nil, err
	}
	var supers []repo.Entity
	for _, sub := range lo.Uniq(subs) {
		ss, err := s.graph.SuperEntities(ctx, sub)
		if err != nil {
			return nil, err
		}
		supers = append(supers, ss...)
	}
	return lo.Uniq(supers), nil
}

func (s *subscriptionService) IsSubscribed(ctx context.Context, action *repo.Action, medium *repo.Medium, entity repo.Entity, subentityType string) (bool, error) {
	if action == nil {
		return false, ErrActionRequired
	}
	if medium == nil {
		return false, ErrMediumRequired
	}

	if subentityType != "" {
		supers, err := s.supersOfSubs(ctx, entity, subentityType)
		if err != nil || len(supers) == 0 {
			return false, err
		}
		ok, err := s.db.Subscription.Exist(ctx,
			repo.MediumIs(medium.ID),
			repo.ActionMatches(action.ID),
			repo.SubscriberIn(supers),
			repo.GroupRuleFor(subentityType),
		)
		if err != nil {
			return false, fmt.Errorf("check group subscription: %w", err)
		}
		return ok, nil
	}

	unsubscribed, err := s.IsUnsubscribed(ctx, action, medium, entity)
	if err != nil || unsubscribed {
		return false, err
	}
	rule, err := s.viewerRule(ctx, entity)
	if err != nil {
		return false, err
	}
	ok, err := s.db.Subscription.Exist(ctx, repo.MediumIs(medium.ID), repo.ActionMatches(action.ID), rule)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return ok, nil
}

// IsUnsubscribed reports whether entity opted out of action on medium. Only
// unsubscribes that do not follow a particular entity count here.
func (s *subscriptionService) IsUnsubscribed(ctx context.Context, action *repo.Action, medium *repo.Medium, entity repo.Entity) (bool, error) {
	if action == nil {
		return false, ErrActionRequired
	}
	if medium == nil {
		return false, ErrMediumRequired
	}
	ok, err := s.db.Unsubscribe.Exist(ctx,
		repo.SubscriberIs(entity),
		repo.MediumIs(medium.ID),
		repo.ActionMatches(action.ID),
		repo.Unscoped(),
	)
	if err != nil {
		return false, fmt.Errorf("check unsubscribe: %w", err)
	}
	return ok, nil
}

// FilterNotSubscribed keeps the entities that are subscribed to action on
// medium, directly or through a group of their type, and not opted out.
// Input order is preserved and duplicates are dropped.
func (s *subscriptionService) FilterNotSubscribed(ctx context.Context, action *repo.Action, medium *repo.Medium, entities []repo.Entity) ([]repo.Entity, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	typ := entities[0].Type
	if !lo.EveryBy(entities, func(e repo.Entity) bool { return e.Type == typ }) {
		return nil, ErrMixedEntityTypes
	}
	if action == nil {
		return nil, ErrActionRequired
	}
	if medium == nil {
		return nil, ErrMediumRequired
	}

	entities = lo.Uniq(entities)
	base := []*entsql.Predicate{repo.MediumIs(medium.ID), repo.ActionMatches(action.ID)}

	direct, err := s.db.Subscription.Subscribers(ctx,
		append(base, repo.IndividualRule(), repo.SubscriberIn(entities))...)
	if err != nil {
		return nil, fmt.Errorf("load direct subscribers: %w", err)
	}
	subscribed := lo.SliceToMap(direct, func(e repo.Entity) (repo.Entity, bool) { return e, true })

	// group rules are looked up through the supers of the batch only
	supersOf := make(map[repo.Entity][]repo.Entity, len(entities))
	var supers []repo.Entity
	for _, e := range entities {
		ss, err := s.graph.SuperEntities(ctx, e)
		if err != nil {
			return nil, err
		}
		supersOf[e] = ss
		supers = append(supers, ss...)
	}
	if len(supers) > 0 {
		groups, err := s.db.Subscription.Subscribers(ctx,
			append(base, repo.GroupRuleFor(typ), repo.SubscriberIn(lo.Uniq(supers)))...)
		if err != nil {
			return nil, fmt.Errorf("load group subscribers: %w", err)
		}
		holding := lo.SliceToMap(groups, func(g repo.Entity) (repo.Entity, bool) { return g, true })
		for e, ss := range supersOf {
			if lo.SomeBy(ss, func(g repo.Entity) bool { return holding[g] }) {
				subscribed[e] = true
			}
		}
	}

	optedOut, err := s.db.Unsubscribe.Owners(ctx,
		append(base, repo.Unscoped(), repo.SubscriberIn(entities))...)
	if err != nil {
		return nil, fmt.Errorf("load unsubscribes: %w", err)
	}
	for _, e := range optedOut {
		delete(subscribed, e)
	}

	return lo.Filter(entities, func(e repo.Entity, _ int) bool { return subscribed[e] }), nil
}

// ---------------------------------------------------------------------------
// Rule management
// ---------------------------------------------------------------------------

func (s *subscriptionService) Subscribe(ctx context.Context, req SubscribeRequest) (*repo.Subscription, error) {
	if req.Entity.IsZero() {
		return nil, ErrEmptyRule
	}
	if req.MediumID == 0 {
		return nil, ErrMediumRequired
	}
	if req.FollowedSubentityType != "" && req.FollowedEntity == nil {
		return nil, ErrFollowWithoutEntity
	}

	sub, err := s.db.Subscription.Create(ctx, &repo.Subscription{
		MediumID:              req.MediumID,
		ActionID:              req.ActionID,
		Entity:                req.Entity,
		SubentityType:         optional(req.SubentityType),
		FollowedEntity:        req.FollowedEntity,
		FollowedSubentityType: optional(req.FollowedSubentityType),
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, req UnsubscribeRequest) (*repo.Unsubscribe, error) {
	if req.Entity.IsZero() {
		return nil, ErrEmptyRule
	}
	if req.MediumID == 0 {
		return nil, ErrMediumRequired
	}

	u, err := s.db.Unsubscribe.Create(ctx, &repo.Unsubscribe{
		Entity:         req.Entity,
		MediumID:       req.MediumID,
		ActionID:       req.ActionID,
		FollowedEntity: req.FollowedEntity,
	})
	if err != nil {
		return nil, fmt.Errorf("create unsubscribe: %w", err)
	}
	return u, nil
}

func (s *subscriptionService) RemoveSubscription(ctx context.Context, id int64) error {
	if err := s.db.Subscription.Delete(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (s *subscriptionService) RemoveUnsubscribe(ctx context.Context, id int64) error {
	if err := s.db.Unsubscribe.Delete(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("delete unsubscribe: %w", err)
	}
	return nil
}

func (s *subscriptionService) SubscriptionsFor(ctx context.Context, entity repo.Entity) ([]*repo.Subscription, error) {
	subs, err := s.db.Subscription.Query(ctx, repo.SubscriberIs(entity))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *subscriptionService) UnsubscribesFor(ctx context.Context, entity repo.Entity) ([]*repo.Unsubscribe, error) {
	us, err := s.db.Unsubscribe.Query(ctx, repo.SubscriberIs(entity))
	if err != nil {
		return nil, fmt.Errorf("list unsubscribes: %w", err)
	}
	return us, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
