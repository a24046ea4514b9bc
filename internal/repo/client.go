// Package repo is the storage client for subscription rules, notifications
// and their delivery rows. Statements are built with the ent SQL builder so
// the same client runs on PostgreSQL and SQLite.
package repo

import (
	"context"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
)

// config is shared by the entity clients of a Client or a Tx.
type config struct {
	driver  dialect.ExecQuerier
	dialect string
}

type options struct {
	driver dialect.Driver
}

// Option configures a Client.
type Option func(*options)

// Driver sets the underlying dialect driver.
func Driver(drv dialect.Driver) Option {
	return func(o *options) { o.driver = drv }
}

// Client is the entry point for all storage operations.
type Client struct {
	config
	drv dialect.Driver

	Schema       *Schema
	Medium       *MediumClient
	Action       *ActionClient
	Subscription *SubscriptionClient
	Unsubscribe  *UnsubscribeClient
	Notification *NotificationClient
	Delivery     *DeliveryClient
	Relationship *RelationshipClient
}

func NewClient(opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.driver == nil {
		panic("repo: missing driver")
	}
	c := &Client{drv: o.driver, config: config{driver: o.driver, dialect: o.driver.Dialect()}}
	c.Schema = &Schema{config: c.config}
	c.init()
	return c
}

func (c *Client) init() {
	c.Medium = &MediumClient{config: c.config}
	c.Action = &ActionClient{config: c.config}
	c.Subscription = &SubscriptionClient{config: c.config}
	c.Unsubscribe = &UnsubscribeClient{config: c.config}
	c.Notification = &NotificationClient{config: c.config}
	c.Delivery = &DeliveryClient{config: c.config}
	c.Relationship = &RelationshipClient{config: c.config}
}

// Dialect returns the SQL dialect name of the underlying driver.
func (c *Client) Dialect() string { return c.dialect }

func (c *Client) Close() error { return c.drv.Close() }

// Tx starts a transaction. Entity clients on the returned Tx run inside it.
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo: starting a transaction: %w", err)
	}
	cfg := config{driver: tx, dialect: c.dialect}
	return &Tx{
		tx:           tx,
		Notification: &NotificationClient{config: cfg},
		Delivery:     &DeliveryClient{config: cfg},
		Subscription: &SubscriptionClient{config: cfg},
		Unsubscribe:  &UnsubscribeClient{config: cfg},
	}, nil
}

// Tx is a transactional view over the clients that take part in writes.
type Tx struct {
	tx dialect.Tx

	Notification *NotificationClient
	Delivery     *DeliveryClient
	Subscription *SubscriptionClient
	Unsubscribe  *UnsubscribeClient
}

func (tx *Tx) Commit() error { return tx.tx.Commit() }

func (tx *Tx) Rollback() error { return tx.tx.Rollback() }

// NotFoundError is returned when a single-row lookup matches nothing.
type NotFoundError struct {
	label string
}

func (e *NotFoundError) Error() string { return "repo: " + e.label + " not found" }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// ConstraintError is returned when a write violates a unique constraint.
type ConstraintError struct {
	msg  string
	wrap error
}

func (e *ConstraintError) Error() string { return "repo: constraint failed: " + e.msg }

func (e *ConstraintError) Unwrap() error { return e.wrap }

func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e)
}

type scanner interface {
	Scan(dest ...any) error
}

func (c config) builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.dialect)
}

// rows runs a query and calls fn once per row. The result set is closed
// before rows returns, so fn must not issue queries of its own.
func (c config) rows(ctx context.Context, q entsql.Querier, fn func(scanner) error) error {
	query, args := q.Query()
	var rows entsql.Rows
	if err := c.driver.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c config) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	var res entsql.Result
	if err := c.driver.Exec(ctx, query, args, &res); err != nil {
		return 0, wrapConstraint(err)
	}
	return res.RowsAffected()
}

// insert executes ib and returns the generated id.
func (c config) insert(ctx context.Context, ib *entsql.InsertBuilder) (int64, error) {
	if c.dialect == dialect.Postgres {
		ib.Returning("id")
		var id int64
		err := c.rows(ctx, ib, func(s scanner) error { return s.Scan(&id) })
		return id, wrapConstraint(err)
	}
	query, args := ib.Query()
	var res entsql.Result
	if err := c.driver.Exec(ctx, query, args, &res); err != nil {
		return 0, wrapConstraint(err)
	}
	return res.LastInsertId()
}

func (c config) exist(ctx context.Context, table string, preds ...*entsql.Predicate) (bool, error) {
	sel := c.builder().Select("id").From(c.builder().Table(table)).Limit(1)
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	found := false
	err := c.rows(ctx, sel, func(scanner) error {
		found = true
		return nil
	})
	return found, err
}

func wrapConstraint(err error) error {
	if err != nil && sqlgraph.IsUniqueConstraintError(err) {
		return &ConstraintError{msg: err.Error(), wrap: err}
	}
	return err
}
