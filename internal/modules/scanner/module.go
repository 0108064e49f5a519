package scanner

import (
	"context"
	"time"

	admsvc "signal_engine/internal/modules/admission/service"
	"signal_engine/internal/modules/config"
	healthsvc "signal_engine/internal/modules/health/service"
	marketsvc "signal_engine/internal/modules/marketdata/service"
	monitorsvc "signal_engine/internal/modules/monitor/service"
	persistsvc "signal_engine/internal/modules/persistence/service"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/internal/modules/scanner/service"
	scenariosvc "signal_engine/internal/modules/scenario/service"
	"signal_engine/internal/notify"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("scanner",
		fx.Provide(
			func(
				cfg *config.Config,
				market *marketsvc.Client,
				source scenariosvc.Source,
				admission *admsvc.Controller,
				registry *registrysvc.Registry,
				gateway *persistsvc.Gateway,
				sink notify.Sink,
				monitors *monitorsvc.Manager,
				state *healthsvc.State,
			) *service.Scanner {
				return service.NewScanner(
					cfg.Symbols, market, source, admission, registry,
					gateway, sink, monitors, state,
					cfg.ScanInterval, cfg.ScanConcurrency,
				)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			s *service.Scanner,
			gateway *persistsvc.Gateway,
			registry *registrysvc.Registry,
			monitors *monitorsvc.Manager,
			state *healthsvc.State,
		) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// сперва поднимаем выживших с прошлого запуска;
					// мониторы вешаем на runCtx, стартовый ctx живёт
					// только до конца OnStart
					if _, err := service.Rehydrate(ctx, runCtx, gateway, registry, monitors, cfg.RehydrateMaxAge, time.Now()); err != nil {
						return err
					}
					go s.Run(runCtx)
					state.SetReady(true)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					cancel()
					return nil
				},
			})
		}),
	)
}
