package repo

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
)

// RelationshipClient stores super/sub entity edges, for example a team and
// its member users.
type RelationshipClient struct {
	config
}

// Create links sub under super. Linking the same pair twice is a no-op.
func (c *RelationshipClient) Create(ctx context.Context, super, sub Entity) error {
	ib := c.builder().Insert(tableRelationships).
		Columns("super_entity_type", "super_entity_id", "sub_entity_type", "sub_entity_id").
		Values(super.Type, super.ID, sub.Type, sub.ID)
	_, err := c.exec(ctx, ib)
	if IsConstraintError(err) {
		return nil
	}
	return err
}

func (c *RelationshipClient) Delete(ctx context.Context, super, sub Entity) error {
	_, err := c.exec(ctx, c.builder().Delete(tableRelationships).Where(entsql.And(
		EntityIs("super_entity", super),
		EntityIs("sub_entity", sub),
	)))
	return err
}

// Supers returns every entity that e is a sub-entity of.
func (c *RelationshipClient) Supers(ctx context.Context, e Entity) ([]Entity, error) {
	return c.pairs(ctx, "super_entity", EntityIs("sub_entity", e))
}

// Subs returns the sub-entities of e. An empty typ returns all types.
func (c *RelationshipClient) Subs(ctx context.Context, e Entity, typ string) ([]Entity, error) {
	pred := EntityIs("super_entity", e)
	if typ != "" {
		pred = entsql.And(pred, entsql.EQ("sub_entity_type", typ))
	}
	return c.pairs(ctx, "sub_entity", pred)
}

func (c *RelationshipClient) pairs(ctx context.Context, prefix string, pred *entsql.Predicate) ([]Entity, error) {
	sel := c.builder().Select(prefix+"_type", prefix+"_id").
		From(c.builder().Table(tableRelationships)).
		Where(pred).
		OrderBy(prefix+"_type", prefix+"_id")
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
