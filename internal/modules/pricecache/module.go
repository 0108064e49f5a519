package pricecache

import (
	"context"

	"signal_engine/internal/modules/config"
	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/internal/modules/pricecache/service"

	"go.uber.org/fx"
)

// Module поднимает кэш цен и его фоновый апдейтер.
func Module() fx.Option {
	return fx.Module("pricecache",
		fx.Provide(
			func(cfg *config.Config) *service.Cache {
				return service.NewCache(cfg.PriceCacheTTL)
			},
			func(cfg *config.Config, cache *service.Cache, src service.PriceSource, active service.ActiveSet, marker service.Marker, state *healthsvc.State) *service.Updater {
				return service.NewUpdater(cache, src, active, marker, state, cfg.PriceRefreshInterval, cfg.RequestTimeout)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, u *service.Updater) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go u.Run(runCtx)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
