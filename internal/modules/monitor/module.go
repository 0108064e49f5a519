package monitor

import (
	"context"

	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/monitor/service"
	persistsvc "signal_engine/internal/modules/persistence/service"
	pricesvc "signal_engine/internal/modules/pricecache/service"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/internal/notify"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("monitor",
		fx.Provide(
			func(g *persistsvc.Gateway) service.Persister { return g },
			func(cfg *config.Config, r *registrysvc.Registry, c *pricesvc.Cache, p service.Persister, sink notify.Sink) *service.Manager {
				return service.NewManager(r, c, p, sink, cfg.MonitorPollInterval)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, m *service.Manager) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					m.StopAll(ctx)
					return nil
				},
			})
		}),
	)
}
