package repo

import (
	"context"
	"database/sql"

	entsql "entgo.io/ent/dialect/sql"
)

var subscriptionColumns = []string{
	"id", "medium_id", "action_id", "entity_type", "entity_id", "subentity_type",
	"followed_entity_type", "followed_entity_id", "followed_subentity_type",
}

// SubscriptionClient reads and writes opt-in rules.
type SubscriptionClient struct {
	config
}

func (c *SubscriptionClient) Create(ctx context.Context, s *Subscription) (*Subscription, error) {
	ft, fid := entityValues(s.FollowedEntity)
	ib := c.builder().Insert(tableSubscriptions).
		Columns(subscriptionColumns[1:]...).
		Values(s.MediumID, ptrValue(s.ActionID), s.Entity.Type, s.Entity.ID, ptrValue(s.SubentityType),
			ft, fid, ptrValue(s.FollowedSubentityType))
	id, err := c.insert(ctx, ib)
	if err != nil {
		return nil, err
	}
	out := *s
	out.ID = id
	return &out, nil
}

func (c *SubscriptionClient) Delete(ctx context.Context, id int64) error {
	n, err := c.exec(ctx, c.builder().Delete(tableSubscriptions).Where(entsql.EQ("id", id)))
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{label: "subscription"}
	}
	return nil
}

func (c *SubscriptionClient) Query(ctx context.Context, preds ...*entsql.Predicate) ([]*Subscription, error) {
	sel := c.builder().Select(subscriptionColumns...).From(c.builder().Table(tableSubscriptions)).OrderBy("id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	var out []*Subscription
	err := c.rows(ctx, sel, func(s scanner) error {
		var (
			sub                      Subscription
			action, fid              sql.NullInt64
			subType, ftype, fsubType sql.NullString
		)
		if err := s.Scan(&sub.ID, &sub.MediumID, &action, &sub.Entity.Type, &sub.Entity.ID,
			&subType, &ftype, &fid, &fsubType); err != nil {
			return err
		}
		sub.ActionID = nullInt(action)
		sub.SubentityType = nullString(subType)
		sub.FollowedEntity = nullEntity(ftype, fid)
		sub.FollowedSubentityType = nullString(fsubType)
		out = append(out, &sub)
		return nil
	})
	return out, err
}

// MediumIDs returns the distinct medium ids of the matching rules.
func (c *SubscriptionClient) MediumIDs(ctx context.Context, preds ...*entsql.Predicate) ([]int64, error) {
	return c.mediumIDs(ctx, tableSubscriptions, preds)
}

func (c *SubscriptionClient) Exist(ctx context.Context, preds ...*entsql.Predicate) (bool, error) {
	return c.exist(ctx, tableSubscriptions, preds...)
}

// Subscribers returns the distinct owners of the matching rules.
func (c *SubscriptionClient) Subscribers(ctx context.Context, preds ...*entsql.Predicate) ([]Entity, error) {
	return c.owners(ctx, tableSubscriptions, preds)
}

var unsubscribeColumns = []string{
	"id", "entity_type", "entity_id", "medium_id", "action_id", "followed_entity_type", "followed_entity_id",
}

// UnsubscribeClient reads and writes opt-out rules.
type UnsubscribeClient struct {
	config
}

func (c *UnsubscribeClient) Create(ctx context.Context, u *Unsubscribe) (*Unsubscribe, error) {
	ft, fid := entityValues(u.FollowedEntity)
	ib := c.builder().Insert(tableUnsubscribes).
		Columns(unsubscribeColumns[1:]...).
		Values(u.Entity.Type, u.Entity.ID, u.MediumID, ptrValue(u.ActionID), ft, fid)
	id, err := c.insert(ctx, ib)
	if err != nil {
		return nil, err
	}
	out := *u
	out.ID = id
	return &out, nil
}

func (c *UnsubscribeClient) Delete(ctx context.Context, id int64) error {
	n, err := c.exec(ctx, c.builder().Delete(tableUnsubscribes).Where(entsql.EQ("id", id)))
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{label: "unsubscribe"}
	}
	return nil
}

func (c *UnsubscribeClient) Query(ctx context.Context, preds ...*entsql.Predicate) ([]*Unsubscribe, error) {
	sel := c.builder().Select(unsubscribeColumns...).From(c.builder().Table(tableUnsubscribes)).OrderBy("id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	var out []*Unsubscribe
	err := c.rows(ctx, sel, func(s scanner) error {
		var (
			u           Unsubscribe
			action, fid sql.NullInt64
			ftype       sql.NullString
		)
		if err := s.Scan(&u.ID, &u.Entity.Type, &u.Entity.ID, &u.MediumID, &action, &ftype, &fid); err != nil {
			return err
		}
		u.ActionID = nullInt(action)
		u.FollowedEntity = nullEntity(ftype, fid)
		out = append(out, &u)
		return nil
	})
	return out, err
}

// MediumIDs returns the distinct medium ids of the matching rules.
func (c *UnsubscribeClient) MediumIDs(ctx context.Context, preds ...*entsql.Predicate) ([]int64, error) {
	return c.mediumIDs(ctx, tableUnsubscribes, preds)
}

func (c *UnsubscribeClient) Exist(ctx context.Context, preds ...*entsql.Predicate) (bool, error) {
	return c.exist(ctx, tableUnsubscribes, preds...)
}

// Owners returns the distinct owners of the matching rules.
func (c *UnsubscribeClient) Owners(ctx context.Context, preds ...*entsql.Predicate) ([]Entity, error) {
	return c.owners(ctx, tableUnsubscribes, preds)
}

func (c config) mediumIDs(ctx context.Context, table string, preds []*entsql.Predicate) ([]int64, error) {
	sel := c.builder().Select("medium_id").From(c.builder().Table(table)).Distinct().OrderBy("medium_id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	var ids []int64
	err := c.rows(ctx, sel, func(s scanner) error {
		var id int64
		if err := s.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func (c config) owners(ctx context.Context, table string, preds []*entsql.Predicate) ([]Entity, error) {
	sel := c.builder().Select("entity_type", "entity_id").From(c.builder().Table(table)).
		Distinct().OrderBy("entity_type", "entity_id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	var out []Entity
	err := c.rows(ctx, sel, func(s scanner) error {
		var e Entity
		if err := s.Scan(&e.Type, &e.ID); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
