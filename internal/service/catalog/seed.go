package catalog

import (
	"context"

	"github.com/samber/lo"

	"github.com/Alijeyrad/notifyhub/config"
)

// Seed ensures every configured medium and action exists. Existing rows
// are left untouched.
func Seed(ctx context.Context, svc Service, cfg config.CatalogConfig) (mediums, actions int, err error) {
	for _, e := range lo.Map(cfg.Mediums, entryFromConfig) {
		if _, err = svc.EnsureMedium(ctx, e); err != nil {
			return mediums, actions, err
		}
		mediums++
	}
	for _, e := range lo.Map(cfg.Actions, entryFromConfig) {
		if _, err = svc.EnsureAction(ctx, e); err != nil {
			return mediums, actions, err
		}
		actions++
	}
	return mediums, actions, nil
}

func entryFromConfig(c config.CatalogEntry, _ int) Entry {
	return Entry{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,
		Renderer:    c.Renderer,
	}
}
