package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/internal/repo/repotest"
)

func TestSeed(t *testing.T) {
	svc := New(repotest.Open(t))
	ctx := context.Background()
	cfg := config.CatalogConfig{
		Mediums: []config.CatalogEntry{{Name: "email"}, {Name: "news_feed", DisplayName: "News feed"}},
		Actions: []config.CatalogEntry{{Name: "high_fived", DisplayName: "high fived", Renderer: "high_five"}},
	}

	for i := 0; i < 2; i++ {
		m, a, err := Seed(ctx, svc, cfg)
		if err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		if m != 2 || a != 1 {
			t.Errorf("Seed() = %d, %d; want 2, 1", m, a)
		}
	}

	ms, err := svc.Mediums(ctx)
	if err != nil {
		t.Fatalf("Mediums failed: %v", err)
	}
	if len(ms) != 2 {
		t.Errorf("Expected 2 mediums after seeding twice, got %d", len(ms))
	}
	a, err := svc.ActionByName(ctx, "high_fived")
	if err != nil {
		t.Fatalf("ActionByName failed: %v", err)
	}
	if a.Renderer != "high_five" || a.DisplayName != "high fived" {
		t.Errorf("Unexpected action %+v", a)
	}

	_, _, err = Seed(ctx, svc, config.CatalogConfig{Actions: []config.CatalogEntry{{}}})
	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}
}
