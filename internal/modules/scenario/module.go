package scenario

import (
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/scenario/service"
	"signal_engine/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("scenario",
		fx.Provide(
			func(cfg *config.Config) service.Source {
				if cfg.ScenarioURL == "" {
					logger.Warn("[SCENARIO] no source configured, scanner will not produce candidates")
					return service.None{}
				}
				return service.NewClient(cfg.ScenarioURL, cfg.RequestTimeout)
			},
		),
	)
}
