package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// Namer returns the display name of an entity.
type Namer interface {
	Name(ctx context.Context, e repo.Entity) (string, error)
}

// KindFunc loads the display name of one entity of a kind.
type KindFunc func(ctx context.Context, id int64) (string, error)

// Kinds is a Namer that dispatches on entity type. Unknown types render as
// "<type> <id>".
type Kinds struct {
	mu      sync.RWMutex
	loaders map[string]KindFunc
}

func NewKinds() *Kinds {
	return &Kinds{loaders: make(map[string]KindFunc)}
}

func (k *Kinds) Register(kind string, fn KindFunc) *Kinds {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.loaders[kind] = fn
	return k
}

func (k *Kinds) Name(ctx context.Context, e repo.Entity) (string, error) {
	k.mu.RLock()
	fn, ok := k.loaders[e.Type]
	k.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("%s %d", e.Type, e.ID), nil
	}
	name, err := fn(ctx, e.ID)
	if err != nil {
		return "", fmt.Errorf("name %s: %w", e, err)
	}
	return name, nil
}

// Names is a KindFunc over a fixed id to name table.
func Names(table map[int64]string) KindFunc {
	return func(_ context.Context, id int64) (string, error) {
		if name, ok := table[id]; ok {
			return name, nil
		}
		return fmt.Sprint(id), nil
	}
}
