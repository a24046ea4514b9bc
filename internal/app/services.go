package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/internal/graph"
	"github.com/Alijeyrad/notifyhub/internal/render"
	"github.com/Alijeyrad/notifyhub/internal/repo"
	"github.com/Alijeyrad/notifyhub/internal/service/catalog"
	"github.com/Alijeyrad/notifyhub/internal/service/notification"
	"github.com/Alijeyrad/notifyhub/internal/service/subscription"
	redispkg "github.com/Alijeyrad/notifyhub/pkg/redis"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideGraph,
		ProvideGraphClient,
		ProvideRenderRegistry,
		ProvideCatalogService,
		ProvideSubscriptionService,
		ProvideNotificationService,
	),
)

// ProvideGraph reads relationships from the database, through Redis when
// it is configured. Writes go through the same value so cached lookups are
// dropped on change.
func ProvideGraph(db *repo.Client, rdb *redis.Client, cfg *config.Config, log *slog.Logger) graph.ReadWriter {
	store := graph.NewStore(db)
	if rdb == nil {
		return store
	}
	return graph.NewCached(store, rdb, redispkg.FromCentralConfig(cfg.Redis).GraphCacheTTL(), log)
}

func ProvideGraphClient(g graph.ReadWriter) graph.Client { return g }

type RenderParams struct {
	fx.In

	Cfg *config.Config
	DB  *repo.Client
	// Namer replaces the configured kinds when the binary supplies one.
	Namer render.Namer `optional:"true"`
}

func ProvideRenderRegistry(p RenderParams) *render.Registry {
	names := p.Namer
	if names == nil {
		names = KindsFromConfig(p.DB, p.Cfg.Render.Kinds)
	}
	return render.NewRegistry(render.NewDefault(names, render.Routes(p.Cfg.Render.Routes)))
}

// KindsFromConfig names each configured kind from a column of its table.
// Missing rows render as the bare id.
func KindsFromConfig(db *repo.Client, kinds map[string]config.KindSource) *render.Kinds {
	k := render.NewKinds()
	for kind, src := range kinds {
		k.Register(kind, func(ctx context.Context, id int64) (string, error) {
			name, err := db.Label(ctx, src.Table, src.Column, id)
			if repo.IsNotFound(err) {
				return fmt.Sprint(id), nil
			}
			return name, err
		})
	}
	return k
}

func ProvideCatalogService(db *repo.Client) catalog.Service {
	return catalog.New(db)
}

func ProvideSubscriptionService(db *repo.Client, g graph.Client) subscription.Service {
	return subscription.New(db, g)
}

func ProvideNotificationService(
	db *repo.Client,
	subs subscription.Service,
	g graph.Client,
	renderers *render.Registry,
	log *slog.Logger,
) notification.Service {
	return notification.New(db, subs, g, renderers, notification.WithLogger(log))
}
