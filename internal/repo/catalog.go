package repo

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
)

var catalogColumns = []string{"id", "name", "display_name", "description", "renderer"}

type catalogRow struct {
	ID          int64
	Name        string
	DisplayName string
	Description string
	Renderer    string
}

func (r *catalogRow) scan(s scanner) error {
	return s.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Description, &r.Renderer)
}

func (c config) catalogCreate(ctx context.Context, table string, r *catalogRow) error {
	ib := c.builder().Insert(table).
		Columns("name", "display_name", "description", "renderer").
		Values(r.Name, r.DisplayName, r.Description, r.Renderer)
	id, err := c.insert(ctx, ib)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (c config) catalogQuery(ctx context.Context, table string, preds ...*entsql.Predicate) ([]catalogRow, error) {
	sel := c.builder().Select(catalogColumns...).From(c.builder().Table(table)).OrderBy("id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	var out []catalogRow
	err := c.rows(ctx, sel, func(s scanner) error {
		var r catalogRow
		if err := r.scan(s); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (c config) catalogOne(ctx context.Context, table, label string, pred *entsql.Predicate) (catalogRow, error) {
	rows, err := c.catalogQuery(ctx, table, pred)
	if err != nil {
		return catalogRow{}, err
	}
	if len(rows) == 0 {
		return catalogRow{}, &NotFoundError{label: label}
	}
	return rows[0], nil
}

// MediumClient reads and writes delivery mediums.
type MediumClient struct {
	config
}

func (c *MediumClient) Create(ctx context.Context, m *Medium) (*Medium, error) {
	r := catalogRow(*m)
	if err := c.catalogCreate(ctx, tableMediums, &r); err != nil {
		return nil, err
	}
	out := Medium(r)
	return &out, nil
}

func (c *MediumClient) Get(ctx context.Context, id int64) (*Medium, error) {
	r, err := c.catalogOne(ctx, tableMediums, "medium", entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	m := Medium(r)
	return &m, nil
}

func (c *MediumClient) GetByName(ctx context.Context, name string) (*Medium, error) {
	r, err := c.catalogOne(ctx, tableMediums, "medium", entsql.EQ("name", name))
	if err != nil {
		return nil, err
	}
	m := Medium(r)
	return &m, nil
}

// Query returns mediums ordered by id. With no ids it returns all of them.
func (c *MediumClient) Query(ctx context.Context, ids ...int64) ([]*Medium, error) {
	var preds []*entsql.Predicate
	if ids != nil {
		preds = append(preds, entsql.In("id", int64s(ids)...))
	}
	rows, err := c.catalogQuery(ctx, tableMediums, preds...)
	if err != nil {
		return nil, err
	}
	out := make([]*Medium, len(rows))
	for i := range rows {
		m := Medium(rows[i])
		out[i] = &m
	}
	return out, nil
}

// ActionClient reads and writes notification actions.
type ActionClient struct {
	config
}

func (c *ActionClient) Create(ctx context.Context, a *Action) (*Action, error) {
	r := catalogRow(*a)
	if err := c.catalogCreate(ctx, tableActions, &r); err != nil {
		return nil, err
	}
	out := Action(r)
	return &out, nil
}

func (c *ActionClient) Get(ctx context.Context, id int64) (*Action, error) {
	r, err := c.catalogOne(ctx, tableActions, "action", entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	a := Action(r)
	return &a, nil
}

func (c *ActionClient) GetByName(ctx context.Context, name string) (*Action, error) {
	r, err := c.catalogOne(ctx, tableActions, "action", entsql.EQ("name", name))
	if err != nil {
		return nil, err
	}
	a := Action(r)
	return &a, nil
}

// Query returns actions ordered by id. With no ids it returns all of them.
func (c *ActionClient) Query(ctx context.Context, ids ...int64) ([]*Action, error) {
	var preds []*entsql.Predicate
	if ids != nil {
		preds = append(preds, entsql.In("id", int64s(ids)...))
	}
	rows, err := c.catalogQuery(ctx, tableActions, preds...)
	if err != nil {
		return nil, err
	}
	out := make([]*Action, len(rows))
	for i := range rows {
		a := Action(rows[i])
		out[i] = &a
	}
	return out, nil
}
