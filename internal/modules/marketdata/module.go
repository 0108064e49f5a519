package marketdata

import (
	"context"

	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/marketdata/service"
	pricesvc "signal_engine/internal/modules/pricecache/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			func(cfg *config.Config) *service.Client {
				return service.NewClient(cfg.MarketDataURL, cfg.RequestTimeout)
			},
			func(c *service.Client) pricesvc.PriceSource { return c },
		),
		// ws-стрим поднимаем только если задан адрес
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, cache *pricesvc.Cache, active pricesvc.ActiveSet) {
			if cfg.MarketDataWSURL == "" {
				return
			}
			stream := service.NewStream(cfg.MarketDataWSURL, cache, active)
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go stream.Run(runCtx)
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
