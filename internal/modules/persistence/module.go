package persistence

import (
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/persistence/service"
	pricesvc "signal_engine/internal/modules/pricecache/service"
	"signal_engine/pkg/db"
	"signal_engine/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("persistence",
		fx.Provide(
			// без DSN движок живёт на памяти: удобно для локалки
			func(txm *db.PgTxManager) service.Store {
				if txm == nil {
					logger.Warn("[STORE] no database configured, signals live in memory only")
					return service.NewMemory()
				}
				return service.NewPg(txm)
			},
			func(cfg *config.Config, store service.Store) *service.Gateway {
				return service.NewGateway(store, cfg.PersistenceRetryMax, cfg.PersistenceRetryBase)
			},
			// best-effort запись mark price апдейтером цен
			func(g *service.Gateway) pricesvc.Marker { return g },
		),
	)
}
