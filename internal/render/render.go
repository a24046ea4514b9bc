// Package render turns notifications into text or HTML for a medium.
//
// Renderers are looked up in a Registry by the Renderer key stored on an
// action or medium, then by its name, and fall back to the defaults.
package render

import (
	"context"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// ActionRenderer renders a single notification.
type ActionRenderer interface {
	Render(ctx context.Context, n *repo.Notification, html bool) (string, error)
}

// MediumRenderer renders a batch of notifications for one medium.
type MediumRenderer interface {
	Render(ctx context.Context, ns []*repo.Notification, html bool) ([]string, error)
}

// ActionFunc adapts a function to ActionRenderer.
type ActionFunc func(ctx context.Context, n *repo.Notification, html bool) (string, error)

func (f ActionFunc) Render(ctx context.Context, n *repo.Notification, html bool) (string, error) {
	return f(ctx, n, html)
}

// Registry maps action and medium keys to renderers. It is built at startup
// and read-only afterwards.
type Registry struct {
	defaultAction ActionRenderer
	actions       map[string]ActionRenderer
	mediums       map[string]MediumRenderer
}

func NewRegistry(defaultAction ActionRenderer) *Registry {
	return &Registry{
		defaultAction: defaultAction,
		actions:       make(map[string]ActionRenderer),
		mediums:       make(map[string]MediumRenderer),
	}
}

func (r *Registry) RegisterAction(key string, ar ActionRenderer) *Registry {
	r.actions[key] = ar
	return r
}

func (r *Registry) RegisterMedium(key string, mr MediumRenderer) *Registry {
	r.mediums[key] = mr
	return r
}

// ForAction returns the renderer for a, or the default one.
func (r *Registry) ForAction(a *repo.Action) ActionRenderer {
	if a != nil {
		if ar, ok := lookup(r.actions, a.Renderer, a.Name); ok {
			return ar
		}
	}
	return r.defaultAction
}

// ForMedium returns the renderer for m. The default maps each
// notification's action renderer over the batch.
func (r *Registry) ForMedium(m *repo.Medium) MediumRenderer {
	if m != nil {
		if mr, ok := lookup(r.mediums, m.Renderer, m.Name); ok {
			return mr
		}
	}
	return &mapMedium{registry: r}
}

// Render renders n with its action's renderer.
func (r *Registry) Render(ctx context.Context, n *repo.Notification, html bool) (string, error) {
	return r.ForAction(n.Action).Render(ctx, n, html)
}

func lookup[T any](m map[string]T, keys ...string) (T, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

type mapMedium struct {
	registry *Registry
}

func (m *mapMedium) Render(ctx context.Context, ns []*repo.Notification, html bool) ([]string, error) {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		s, err := m.registry.Render(ctx, n, html)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
