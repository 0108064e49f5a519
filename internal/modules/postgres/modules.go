package postgres

import (
	"context"
	"fmt"

	"signal_engine/internal/modules/config"
	"signal_engine/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					// персистентность опциональна, стор сам решит, что делать
					return nil, nil
				}

				ctx := context.Background()
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
		),
	)
}
