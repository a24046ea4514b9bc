package render

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// Default renders "<actor> <action> [<action object>] [to <target>]". In
// HTML mode each entity name links to the URL found in the notification
// context under "<role>_url", or reversed from "<role>_url_name" and
// "<role>_id". Names without a URL are emitted escaped and unlinked.
type Default struct {
	names  Namer
	routes Routes
}

func NewDefault(names Namer, routes Routes) *Default {
	if names == nil {
		names = NewKinds()
	}
	return &Default{names: names, routes: routes}
}

func (d *Default) Render(ctx context.Context, n *repo.Notification, html bool) (string, error) {
	actor, err := d.entity(ctx, n, "actor", &n.Actor, html)
	if err != nil {
		return "", err
	}
	object, err := d.entity(ctx, n, "action_object", n.ActionObject, html)
	if err != nil {
		return "", err
	}
	target, err := d.entity(ctx, n, "target", n.Target, html)
	if err != nil {
		return "", err
	}
	if target != "" {
		target = "to " + target
	}

	parts := []string{actor, d.action(n, html), object, target}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " "), nil
}

func (d *Default) action(n *repo.Notification, html bool) string {
	if n.Action == nil {
		return ""
	}
	name := n.Action.DisplayName
	if name == "" {
		name = n.Action.Name
	}
	if html {
		return template.HTMLEscapeString(name)
	}
	return name
}

func (d *Default) entity(ctx context.Context, n *repo.Notification, role string, e *repo.Entity, html bool) (string, error) {
	if e == nil {
		return "", nil
	}
	name, err := d.names.Name(ctx, *e)
	if err != nil {
		return "", err
	}
	if !html {
		return name, nil
	}
	name = template.HTMLEscapeString(name)
	url := d.url(n, role, e)
	if url == "" {
		return name, nil
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, template.HTMLEscapeString(url), name), nil
}

func (d *Default) url(n *repo.Notification, role string, e *repo.Entity) string {
	if u, ok := n.Context[role+"_url"].(string); ok && u != "" {
		return u
	}
	routeName, ok := n.Context[role+"_url_name"].(string)
	if !ok || routeName == "" {
		return ""
	}
	id, ok := n.Context[role+"_id"]
	if !ok {
		id = e.ID
	}
	u, _ := d.routes.Reverse(routeName, id)
	return u
}
