package repo

import (
	"database/sql"
	"fmt"
	"time"
)

// Entity is a polymorphic reference to any domain object: a user, a team,
// a board. The pair (Type, ID) identifies it.
type Entity struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

func (e Entity) String() string { return fmt.Sprintf("%s:%d", e.Type, e.ID) }

func (e Entity) IsZero() bool { return e.Type == "" && e.ID == 0 }

// Medium is a delivery channel such as an email digest or an in-app feed.
type Medium struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Renderer    string `json:"renderer,omitempty"`
}

// Action is a kind of event that can be notified about.
type Action struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Renderer    string `json:"renderer,omitempty"`
}

// Subscription is an opt-in rule. A nil ActionID matches every action.
// SubentityType turns the rule into a group rule that applies to every
// sub-entity of that type of Entity. FollowedEntity narrows the rule to
// notifications whose actor is that entity or, with FollowedSubentityType,
// one of its sub-entities.
type Subscription struct {
	ID                    int64
	MediumID              int64
	ActionID              *int64
	Entity                Entity
	SubentityType         *string
	FollowedEntity        *Entity
	FollowedSubentityType *string
}

func (s *Subscription) IsGroup() bool { return s.SubentityType != nil }

// Unsubscribe is an opt-out rule. It always belongs to a single entity and
// dominates any matching subscription, group or individual.
type Unsubscribe struct {
	ID             int64
	Entity         Entity
	MediumID       int64
	ActionID       *int64
	FollowedEntity *Entity
}

// Notification is a recorded occurrence of an action by an actor.
type Notification struct {
	ID           int64
	Actor        Entity
	ActionID     int64
	Action       *Action
	ActionObject *Entity
	Target       *Entity
	Context      map[string]any
	TimeCreated  time.Time
	TimeExpires  *time.Time
	EventID      string
}

// Delivery records that a notification is destined for a medium.
type Delivery struct {
	ID             int64
	NotificationID int64
	MediumID       int64
	TimeSeen       *time.Time
}

func nullEntity(typ sql.NullString, id sql.NullInt64) *Entity {
	if !typ.Valid || !id.Valid {
		return nil
	}
	return &Entity{Type: typ.String, ID: id.Int64}
}

func entityValues(e *Entity) (any, any) {
	if e == nil {
		return nil, nil
	}
	return e.Type, e.ID
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func ptrValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
