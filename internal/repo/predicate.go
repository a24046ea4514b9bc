package repo

import (
	entsql "entgo.io/ent/dialect/sql"
)

// Column prefixes for polymorphic references. A prefix p maps to the
// columns p_type and p_id.
const (
	PrefixEntity       = "entity"
	PrefixFollowed     = "followed_entity"
	PrefixActor        = "actor"
	PrefixActionObject = "action_object"
	PrefixTarget       = "target"
)

// EntityIs matches rows whose prefix columns reference e.
func EntityIs(prefix string, e Entity) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(prefix+"_type", e.Type),
		entsql.EQ(prefix+"_id", e.ID),
	)
}

// EntityIn matches rows whose prefix columns reference any of es. Entities
// are grouped by type so each type becomes one IN clause.
func EntityIn(prefix string, es []Entity) *entsql.Predicate {
	if len(es) == 0 {
		return entsql.ExprP("1 = 0")
	}
	var order []string
	ids := make(map[string][]any)
	for _, e := range es {
		if _, ok := ids[e.Type]; !ok {
			order = append(order, e.Type)
		}
		ids[e.Type] = append(ids[e.Type], e.ID)
	}
	preds := make([]*entsql.Predicate, 0, len(order))
	for _, typ := range order {
		preds = append(preds, entsql.And(
			entsql.EQ(prefix+"_type", typ),
			entsql.In(prefix+"_id", ids[typ]...),
		))
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return entsql.Or(preds...)
}

// SubscriberIs matches rules owned by e.
func SubscriberIs(e Entity) *entsql.Predicate { return EntityIs(PrefixEntity, e) }

// SubscriberIn matches rules owned by any of es.
func SubscriberIn(es []Entity) *entsql.Predicate { return EntityIn(PrefixEntity, es) }

// MediumIs matches rules or deliveries for a medium.
func MediumIs(id int64) *entsql.Predicate { return entsql.EQ("medium_id", id) }

// ActionMatches matches rules for the action and wildcard rules.
func ActionMatches(id int64) *entsql.Predicate {
	return entsql.Or(entsql.IsNull("action_id"), entsql.EQ("action_id", id))
}

// IndividualRule matches subscriptions that apply to their owner only.
func IndividualRule() *entsql.Predicate { return entsql.IsNull("subentity_type") }

// GroupRuleFor matches group subscriptions that cover sub-entities of typ.
func GroupRuleFor(typ string) *entsql.Predicate { return entsql.EQ("subentity_type", typ) }

// ViewerRule matches the rules that reach viewer: its own individual rules
// and the group rules of supers that cover viewer's type.
func ViewerRule(viewer Entity, supers []Entity) *entsql.Predicate {
	own := entsql.And(SubscriberIs(viewer), IndividualRule())
	if len(supers) == 0 {
		return own
	}
	return entsql.Or(own, entsql.And(SubscriberIn(supers), GroupRuleFor(viewer.Type)))
}

// Unscoped matches rules that do not follow a particular entity.
func Unscoped() *entsql.Predicate { return entsql.IsNull(PrefixFollowed + "_type") }

// ActorIs matches notifications performed by e.
func ActorIs(e Entity) *entsql.Predicate { return EntityIs(PrefixActor, e) }

// ActorIn matches notifications performed by any of es.
func ActorIn(es []Entity) *entsql.Predicate { return EntityIn(PrefixActor, es) }

// NotificationAction matches notifications of the action.
func NotificationAction(id int64) *entsql.Predicate { return entsql.EQ("action_id", id) }

// NotificationIDIn matches notifications by id.
func NotificationIDIn(ids ...int64) *entsql.Predicate {
	if len(ids) == 0 {
		return entsql.ExprP("1 = 0")
	}
	return entsql.In("id", int64s(ids)...)
}

func int64s(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
