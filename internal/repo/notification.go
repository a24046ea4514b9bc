package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var notificationColumns = []string{
	"id", "actor_type", "actor_id", "action_id", "action_object_type", "action_object_id",
	"target_type", "target_id", "context", "time_created", "time_expires", "event_id",
}

// NotificationClient reads and writes notifications.
type NotificationClient struct {
	config
}

// Create inserts n. A duplicate EventID yields a ConstraintError.
func (c *NotificationClient) Create(ctx context.Context, n *Notification) (*Notification, error) {
	raw := []byte("{}")
	if len(n.Context) > 0 {
		var err error
		if raw, err = json.Marshal(n.Context); err != nil {
			return nil, fmt.Errorf("repo: encoding notification context: %w", err)
		}
	}
	aot, aoid := entityValues(n.ActionObject)
	tt, tid := entityValues(n.Target)
	ib := c.builder().Insert(tableNotifications).
		Columns(notificationColumns[1:]...).
		Values(n.Actor.Type, n.Actor.ID, n.ActionID, aot, aoid, tt, tid,
			string(raw), n.TimeCreated.UTC(), expiresValue(n.TimeExpires), n.EventID)
	id, err := c.insert(ctx, ib)
	if err != nil {
		return nil, err
	}
	out := *n
	out.ID = id
	return &out, nil
}

func expiresValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Query returns the matching notifications ordered by creation time, ties
// broken by id. The Action edge is loaded.
func (c *NotificationClient) Query(ctx context.Context, preds ...*entsql.Predicate) ([]*Notification, error) {
	sel := c.builder().Select(notificationColumns...).From(c.builder().Table(tableNotifications)).
		OrderBy("time_created", "id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	var out []*Notification
	err := c.rows(ctx, sel, func(s scanner) error {
		n, err := scanNotification(s)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := c.loadActions(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotificationClient) Get(ctx context.Context, id int64) (*Notification, error) {
	ns, err := c.Query(ctx, NotificationIDIn(id))
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, &NotFoundError{label: "notification"}
	}
	return ns[0], nil
}

func (c *NotificationClient) GetByEventID(ctx context.Context, eventID string) (*Notification, error) {
	ns, err := c.Query(ctx, entsql.EQ("event_id", eventID))
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, &NotFoundError{label: "notification"}
	}
	return ns[0], nil
}

func (c *NotificationClient) loadActions(ctx context.Context, ns []*Notification) error {
	if len(ns) == 0 {
		return nil
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, n := range ns {
		if !seen[n.ActionID] {
			seen[n.ActionID] = true
			ids = append(ids, n.ActionID)
		}
	}
	rows, err := c.catalogQuery(ctx, tableActions, entsql.In("id", int64s(ids)...))
	if err != nil {
		return fmt.Errorf("repo: loading actions: %w", err)
	}
	byID := make(map[int64]*Action, len(rows))
	for i := range rows {
		a := Action(rows[i])
		byID[a.ID] = &a
	}
	for _, n := range ns {
		n.Action = byID[n.ActionID]
	}
	return nil
}

func scanNotification(s scanner) (*Notification, error) {
	var (
		n         Notification
		aot, tt   sql.NullString
		aoid, tid sql.NullInt64
		raw       string
		created   time.Time
		expires   sql.NullTime
	)
	if err := s.Scan(&n.ID, &n.Actor.Type, &n.Actor.ID, &n.ActionID, &aot, &aoid, &tt, &tid,
		&raw, &created, &expires, &n.EventID); err != nil {
		return nil, err
	}
	n.ActionObject = nullEntity(aot, aoid)
	n.Target = nullEntity(tt, tid)
	n.TimeCreated = created.UTC()
	if exp := nullTime(expires); exp != nil {
		utc := exp.UTC()
		n.TimeExpires = &utc
	}
	if raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &n.Context); err != nil {
			return nil, fmt.Errorf("repo: decoding notification %d context: %w", n.ID, err)
		}
	}
	return &n, nil
}

// DeliveryClient reads and writes notification_mediums rows.
type DeliveryClient struct {
	config
}

// CreateBulk records that the notification is destined for each medium.
func (c *DeliveryClient) CreateBulk(ctx context.Context, notificationID int64, mediumIDs ...int64) error {
	if len(mediumIDs) == 0 {
		return nil
	}
	ib := c.builder().Insert(tableDeliveries).Columns("notification_id", "medium_id")
	for _, id := range mediumIDs {
		ib.Values(notificationID, id)
	}
	_, err := c.exec(ctx, ib)
	return err
}

// Query returns the deliveries of a notification ordered by medium id.
func (c *DeliveryClient) Query(ctx context.Context, notificationID int64) ([]*Delivery, error) {
	sel := c.builder().Select("id", "notification_id", "medium_id", "time_seen").
		From(c.builder().Table(tableDeliveries)).
		Where(entsql.EQ("notification_id", notificationID)).
		OrderBy("medium_id")
	var out []*Delivery
	err := c.rows(ctx, sel, func(s scanner) error {
		var (
			d    Delivery
			seen sql.NullTime
		)
		if err := s.Scan(&d.ID, &d.NotificationID, &d.MediumID, &seen); err != nil {
			return err
		}
		d.TimeSeen = nullTime(seen)
		out = append(out, &d)
		return nil
	})
	return out, err
}

// MarkSeen stamps the unseen deliveries of the notifications on the medium
// and returns how many rows changed. Already seen rows keep their time.
func (c *DeliveryClient) MarkSeen(ctx context.Context, mediumID int64, at time.Time, notificationIDs ...int64) (int, error) {
	if len(notificationIDs) == 0 {
		return 0, nil
	}
	ub := c.builder().Update(tableDeliveries).
		Set("time_seen", at.UTC()).
		Where(entsql.And(
			entsql.EQ("medium_id", mediumID),
			entsql.In("notification_id", int64s(notificationIDs)...),
			entsql.IsNull("time_seen"),
		))
	n, err := c.exec(ctx, ub)
	return int(n), err
}

// NotificationIDs returns the notifications delivered to the medium, oldest
// first. With unseenOnly, seen deliveries are skipped.
func (c *DeliveryClient) NotificationIDs(ctx context.Context, mediumID int64, unseenOnly bool) ([]int64, error) {
	preds := []*entsql.Predicate{MediumIs(mediumID)}
	if unseenOnly {
		preds = append(preds, entsql.IsNull("time_seen"))
	}
	sel := c.builder().Select("notification_id").From(c.builder().Table(tableDeliveries)).
		Where(entsql.And(preds...)).OrderBy("notification_id")
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
