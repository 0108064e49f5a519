package service

import (
	"context"
	"errors"
	"time"

	"signal_engine/internal/models"
	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/pkg/db"
	"signal_engine/pkg/logger"
	"signal_engine/pkg/retry"
)

// Gateway — единственная дверь к стору для остального ядра. Прячет
// повторы при конкуренции за базу; движок живёт дальше, даже если
// запись так и не прошла.
type Gateway struct {
	store Store
	cfg   retry.Config
}

func NewGateway(store Store, maxAttempts int, baseDelay time.Duration) *Gateway {
	return &Gateway{
		store: store,
		cfg: retry.Config{
			MaxAttempts:  maxAttempts,
			BaseDelay:    baseDelay,
			MaxDelay:     3 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
			RetryIf:      retryableWrite,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				healthsvc.PersistenceRetries.Inc()
				logger.Warn("[STORE] write contention, attempt %d, retry in %s: %v", attempt, delay, err)
			},
		},
	}
}

// retryableWrite: повторяем только конкуренцию за базу и явно
// временные ошибки. Ошибка кодирования или констрейнта не лечится.
func retryableWrite(err error) bool {
	if db.IsContention(err) {
		return true
	}
	var t *retry.TemporaryError
	return errors.As(err, &t)
}

// Save апсертит сигнал с повторами. После исчерпания попыток запись
// дропается: состояние в памяти главнее, монитор не должен вставать
// из-за базы.
func (g *Gateway) Save(ctx context.Context, s *models.Signal) error {
	err := retry.Do(ctx, func() error {
		return g.store.Save(ctx, s)
	}, g.cfg)
	if err != nil {
		healthsvc.PersistenceDropped.Inc()
		logger.Error("[STORE] %s: write dropped after %d attempts: %v", s.ID, g.cfg.MaxAttempts, err)
	}
	return nil
}

// LoadActive поднимает активные сигналы, молча пропуская битые записи:
// один испорченный ряд не должен валить рестарт.
func (g *Gateway) LoadActive(ctx context.Context) ([]*models.Signal, error) {
	signals, err := g.store.LoadActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Signal, 0, len(signals))
	for _, s := range signals {
		if err := sane(s); err != nil {
			logger.Warn("[STORE] %s: skipped on load: %v", s.ID, err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// MarkPrice — best-effort, без повторов.
func (g *Gateway) MarkPrice(ctx context.Context, symbol string, price float64) error {
	return g.store.MarkPrice(ctx, symbol, price)
}

// sane отсекает ряды, с которыми монитор не сможет работать.
func sane(s *models.Signal) error {
	c := models.Candidate{
		Symbol:     s.Symbol,
		Direction:  s.Direction,
		EntryPrice: s.EntryPrice,
		StopLoss:   s.StopLoss,
		TP1:        s.TP1,
		TP2:        s.TP2,
		TP3:        s.TP3,
	}
	if err := c.Validate(); err != nil {
		// перенос стопа в безубыток ломает порядок sl < entry,
		// для уже торгующегося сигнала это норма
		if s.TP1Hit && s.EntryPrice > 0 {
			return nil
		}
		return err
	}
	return nil
}
