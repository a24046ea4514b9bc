package repo

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// Label reads a text column of the row with the given id from a table the
// embedding application owns, e.g. users.username. The table must have an
// integer id column.
func (c *Client) Label(ctx context.Context, table, column string, id int64) (string, error) {
	sel := c.builder().Select(column).
		From(c.builder().Table(table)).
		Where(entsql.EQ("id", id)).
		Limit(1)
	var (
		label string
		found bool
	)
	err := c.rows(ctx, sel, func(s scanner) error {
		found = true
		return s.Scan(&label)
	})
	if err != nil {
		return "", fmt.Errorf("read %s.%s: %w", table, column, err)
	}
	if !found {
		return "", &NotFoundError{label: table + " row"}
	}
	return label, nil
}
