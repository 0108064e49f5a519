package main

import (
	"context"
	"log"

	"signal_engine/internal/modules/admission"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/health"
	"signal_engine/internal/modules/marketdata"
	"signal_engine/internal/modules/monitor"
	"signal_engine/internal/modules/persistence"
	"signal_engine/internal/modules/postgres"
	"signal_engine/internal/modules/pricecache"
	"signal_engine/internal/modules/registry"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/internal/modules/scanner"
	"signal_engine/internal/modules/scenario"
	"signal_engine/internal/notify"
	"signal_engine/pkg/logger"
	"signal_engine/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "signal_engine"

func main() {
	logger.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	tracing.SetServiceName(serviceName)

	app := fx.New(
		config.Module(),
		postgres.Module(),
		persistence.Module(),
		health.Module(),
		pricecache.Module(),
		registry.Module(),
		admission.Module(),
		marketdata.Module(),
		scenario.Module(),
		monitor.Module(),
		scanner.Module(),
		fx.Provide(
			// Sink: если TELEGRAM_* нет — используем stdout
			func(cfg *config.Config, r *registrysvc.Registry) notify.Sink {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, r); err == nil {
						return tg
					}
					logger.Warn("telegram init failed, falling back to stdout")
				}
				return notify.NewStdout()
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, n notify.Sink) {
				var closeTracer func()
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if cfg.Jaeger.Host != "" {
							_, closer, err := tracing.InitTracer(tracing.Config{
								Host: cfg.Jaeger.Host,
								Port: cfg.Jaeger.Port,
							})
							if err != nil {
								return err
							}
							closeTracer = closer
						}
						if tg, ok := n.(*notify.Telegram); ok {
							if err := tg.Start(ctx); err != nil {
								return err
							}
						}
						logger.Info("engine started")
						return nil
					},
					OnStop: func(ctx context.Context) error {
						if tg, ok := n.(*notify.Telegram); ok {
							tg.Stop()
						}
						if closeTracer != nil {
							closeTracer()
						}
						logger.Info("stopping...")
						return nil
					},
				})
			},
		),
	)
	app.Run()
}
