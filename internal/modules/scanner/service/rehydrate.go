package service

import (
	"context"
	"time"

	"signal_engine/internal/models"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/pkg/logger"
)

// Loader — чтение активных сигналов из стора при рестарте.
type Loader interface {
	LoadActive(ctx context.Context) ([]*models.Signal, error)
}

// Rehydrate поднимает активные сигналы из стора и вешает на каждый
// монитор. loadCtx ограничивает только чтение из стора; мониторы
// живут на runCtx, который переживает старт приложения. Сигналы
// старше maxAge не возобновляются: их уровни давно не актуальны,
// пусть лежат в базе как есть.
func Rehydrate(loadCtx, runCtx context.Context, loader Loader, registry *registrysvc.Registry, monitors Spawner, maxAge time.Duration, now time.Time) (int, error) {
	signals, err := loader.LoadActive(loadCtx)
	if err != nil {
		return 0, err
	}

	adopted := 0
	cutoff := now.Add(-maxAge)
	for _, s := range signals {
		if s.CreatedAt.Before(cutoff) {
			logger.Warn("[SCAN] %s: too old to resume (created %s)", s.ID, s.CreatedAt.Format(time.RFC3339))
			continue
		}
		if err := registry.Adopt(s); err != nil {
			logger.Error("[SCAN] %s: adopt: %v", s.ID, err)
			continue
		}
		if err := monitors.Spawn(runCtx, s.ID, s.Symbol); err != nil {
			logger.Error("[SCAN] %s: spawn: %v", s.ID, err)
			continue
		}
		adopted++
	}

	if adopted > 0 {
		logger.Info("[SCAN] rehydrated %d of %d stored signals", adopted, len(signals))
	}
	return adopted, nil
}
