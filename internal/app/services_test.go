package app

import (
	"context"
	"testing"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/internal/render"
	"github.com/Alijeyrad/notifyhub/internal/repo"
	"github.com/Alijeyrad/notifyhub/internal/repo/repotest"
)

func TestProvideRenderRegistryNames(t *testing.T) {
	ctx := context.Background()
	db := repotest.Open(t)
	// mediums stands in for an application table with an id and a text column
	m, err := db.Medium.Create(ctx, &repo.Medium{Name: "jared"})
	if err != nil {
		t.Fatalf("create medium: %v", err)
	}
	cfg := &config.Config{Render: config.RenderConfig{
		Kinds: map[string]config.KindSource{"user": {Table: "mediums", Column: "name"}},
	}}
	posted := &repo.Action{Name: "posted", DisplayName: "posted"}

	tests := []struct {
		name  string
		namer render.Namer
		actor repo.Entity
		want  string
	}{
		{"configured kind", nil, repo.Entity{Type: "user", ID: m.ID}, "jared posted"},
		{"configured kind missing row", nil, repo.Entity{Type: "user", ID: m.ID + 50}, "51 posted"},
		{"unconfigured kind", nil, repo.Entity{Type: "team", ID: 3}, "team 3 posted"},
		{
			"injected namer",
			render.NewKinds().Register("user", render.Names(map[int64]string{m.ID: "wes"})),
			repo.Entity{Type: "user", ID: m.ID},
			"wes posted",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := ProvideRenderRegistry(RenderParams{Cfg: cfg, DB: db, Namer: tt.namer})
			got, err := reg.Render(ctx, &repo.Notification{Actor: tt.actor, Action: posted}, false)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
