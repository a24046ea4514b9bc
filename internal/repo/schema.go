package repo

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// Schema creates the tables used by the client.
type Schema struct {
	config
}

const (
	tableMediums       = "mediums"
	tableActions       = "actions"
	tableSubscriptions = "subscriptions"
	tableUnsubscribes  = "unsubscribes"
	tableNotifications = "notifications"
	tableDeliveries    = "notification_mediums"
	tableRelationships = "entity_relationships"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS mediums (
		id {{pk}},
		name VARCHAR(64) NOT NULL UNIQUE,
		display_name VARCHAR(128) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		renderer VARCHAR(128) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS actions (
		id {{pk}},
		name VARCHAR(64) NOT NULL UNIQUE,
		display_name VARCHAR(128) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		renderer VARCHAR(128) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id {{pk}},
		medium_id {{int}} NOT NULL REFERENCES mediums(id) ON DELETE CASCADE,
		action_id {{int}} NULL REFERENCES actions(id) ON DELETE CASCADE,
		entity_type VARCHAR(64) NOT NULL,
		entity_id {{int}} NOT NULL,
		subentity_type VARCHAR(64) NULL,
		followed_entity_type VARCHAR(64) NULL,
		followed_entity_id {{int}} NULL,
		followed_subentity_type VARCHAR(64) NULL
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_entity ON subscriptions (entity_type, entity_id)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_medium_action ON subscriptions (medium_id, action_id)`,
	`CREATE TABLE IF NOT EXISTS unsubscribes (
		id {{pk}},
		entity_type VARCHAR(64) NOT NULL,
		entity_id {{int}} NOT NULL,
		medium_id {{int}} NOT NULL REFERENCES mediums(id) ON DELETE CASCADE,
		action_id {{int}} NULL REFERENCES actions(id) ON DELETE CASCADE,
		followed_entity_type VARCHAR(64) NULL,
		followed_entity_id {{int}} NULL
	)`,
	`CREATE INDEX IF NOT EXISTS unsubscribes_entity ON unsubscribes (entity_type, entity_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id {{pk}},
		actor_type VARCHAR(64) NOT NULL,
		actor_id {{int}} NOT NULL,
		action_id {{int}} NOT NULL REFERENCES actions(id),
		action_object_type VARCHAR(64) NULL,
		action_object_id {{int}} NULL,
		target_type VARCHAR(64) NULL,
		target_id {{int}} NULL,
		context TEXT NOT NULL DEFAULT '{}',
		time_created {{time}} NOT NULL,
		time_expires {{time}} NULL,
		event_id VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_actor ON notifications (actor_type, actor_id)`,
	`CREATE INDEX IF NOT EXISTS notifications_created ON notifications (time_created, id)`,
	`CREATE TABLE IF NOT EXISTS notification_mediums (
		id {{pk}},
		notification_id {{int}} NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
		medium_id {{int}} NOT NULL REFERENCES mediums(id) ON DELETE CASCADE,
		time_seen {{time}} NULL,
		UNIQUE (notification_id, medium_id)
	)`,
	`CREATE INDEX IF NOT EXISTS notification_mediums_medium ON notification_mediums (medium_id, time_seen)`,
	`CREATE TABLE IF NOT EXISTS entity_relationships (
		id {{pk}},
		super_entity_type VARCHAR(64) NOT NULL,
		super_entity_id {{int}} NOT NULL,
		sub_entity_type VARCHAR(64) NOT NULL,
		sub_entity_id {{int}} NOT NULL,
		UNIQUE (super_entity_type, super_entity_id, sub_entity_type, sub_entity_id)
	)`,
	`CREATE INDEX IF NOT EXISTS entity_relationships_sub ON entity_relationships (sub_entity_type, sub_entity_id)`,
}

func ddlReplacer(name string) (*strings.Replacer, error) {
	switch name {
	case dialect.Postgres:
		return strings.NewReplacer("{{pk}}", "BIGSERIAL PRIMARY KEY", "{{int}}", "BIGINT", "{{time}}", "TIMESTAMPTZ"), nil
	case dialect.SQLite:
		return strings.NewReplacer("{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{int}}", "INTEGER", "{{time}}", "DATETIME"), nil
	default:
		return nil, fmt.Errorf("repo: unsupported dialect %q", name)
	}
}

// Create runs the idempotent DDL for the current dialect.
func (s *Schema) Create(ctx context.Context) error {
	r, err := ddlReplacer(s.dialect)
	if err != nil {
		return err
	}
	for _, stmt := range ddl {
		if err := s.driver.Exec(ctx, r.Replace(stmt), []any{}, nil); err != nil {
			return fmt.Errorf("repo: creating schema: %w", err)
		}
	}
	return nil
}
