package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

const keyPrefix = "notifyhub:graph:"

// Cached is a read-through Redis cache in front of another Client. Redis
// failures fall through to the inner client.
type Cached struct {
	inner Client
	rdb   redis.Cmdable
	ttl   time.Duration
	log   *slog.Logger
}

func NewCached(inner Client, rdb redis.Cmdable, ttl time.Duration, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func (c *Cached) SuperEntities(ctx context.Context, e repo.Entity) ([]repo.Entity, error) {
	key := fmt.Sprintf("%ssuper:%s:%d", keyPrefix, e.Type, e.ID)
	return c.load(ctx, key, func() ([]repo.Entity, error) {
		return c.inner.SuperEntities(ctx, e)
	})
}

func (c *Cached) SubEntities(ctx context.Context, e repo.Entity, typ string) ([]repo.Entity, error) {
	key := fmt.Sprintf("%ssub:%s:%d:%s", keyPrefix, e.Type, e.ID, typ)
	return c.load(ctx, key, func() ([]repo.Entity, error) {
		return c.inner.SubEntities(ctx, e, typ)
	})
}

// ErrReadOnly is returned by Cached writes when the inner client cannot
// change relationships.
var ErrReadOnly = errors.New("graph: client is read-only")

// Link writes through to the inner client and drops the cached lookups of
// both entities, so the new edge is visible on the next read.
func (c *Cached) Link(ctx context.Context, super, sub repo.Entity) error {
	return c.write(ctx, super, sub, Writer.Link)
}

func (c *Cached) Unlink(ctx context.Context, super, sub repo.Entity) error {
	return c.write(ctx, super, sub, Writer.Unlink)
}

func (c *Cached) write(ctx context.Context, super, sub repo.Entity, op func(Writer, context.Context, repo.Entity, repo.Entity) error) error {
	w, ok := c.inner.(Writer)
	if !ok {
		return ErrReadOnly
	}
	if err := op(w, ctx, super, sub); err != nil {
		return err
	}
	for _, e := range []repo.Entity{super, sub} {
		if err := c.Invalidate(ctx, e); err != nil {
			// stale until the ttl runs out
			c.log.WarnContext(ctx, "graph cache invalidate failed", slog.String("entity", e.String()), slog.Any("error", err))
		}
	}
	return nil
}

// Invalidate drops every cached lookup that may involve e.
func (c *Cached) Invalidate(ctx context.Context, e repo.Entity) error {
	keys := []string{fmt.Sprintf("%ssuper:%s:%d", keyPrefix, e.Type, e.ID)}
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("%ssub:%s:%d:*", keyPrefix, e.Type, e.ID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan graph cache: %w", err)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cached) load(ctx context.Context, key string, fetch func() ([]repo.Entity, error)) ([]repo.Entity, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []repo.Entity
		if jerr := json.Unmarshal(raw, &out); jerr == nil {
			return out, nil
		}
		c.log.WarnContext(ctx, "graph cache entry corrupt", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "graph cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	out, err := fetch()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.WarnContext(ctx, "graph cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return out, nil
}
