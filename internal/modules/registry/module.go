package registry

import (
	"signal_engine/internal/modules/config"
	healthsvc "signal_engine/internal/modules/health/service"
	pricesvc "signal_engine/internal/modules/pricecache/service"
	"signal_engine/internal/modules/registry/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(
			func(cfg *config.Config, state *healthsvc.State) *service.Registry {
				return service.NewRegistry(cfg.FillFractions, state)
			},
			// реестр же и отвечает апдейтеру цен, какие символы живые
			func(r *service.Registry) pricesvc.ActiveSet { return r },
		),
	)
}
