package admission

import (
	"signal_engine/internal/modules/admission/service"
	"signal_engine/internal/modules/config"
	registrysvc "signal_engine/internal/modules/registry/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("admission",
		fx.Provide(
			func(cfg *config.Config, r *registrysvc.Registry) *service.Controller {
				return service.NewController(cfg.CooldownPerSymbol, cfg.MaxSignalsPerHour, cfg.MaxActivePerSymbol, r)
			},
		),
	)
}
