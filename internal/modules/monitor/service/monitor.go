package service

import (
	"context"
	"errors"
	"time"

	"signal_engine/internal/models"
	healthsvc "signal_engine/internal/modules/health/service"
	pricesvc "signal_engine/internal/modules/pricecache/service"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/internal/notify"
	"signal_engine/pkg/logger"
)

// Persister — запись сигнала в стор (гейтвей с повторами).
type Persister interface {
	Save(ctx context.Context, s *models.Signal) error
}

// Monitor ведёт один сигнал от регистрации до терминального статуса.
// Владеет всеми мутациями своего сигнала, поэтому внутри тика никакой
// другой синхронизации не нужно.
type Monitor struct {
	signalID string
	symbol   string

	registry *registrysvc.Registry
	cache    *pricesvc.Cache
	store    Persister
	sink     notify.Sink

	poll time.Duration
}

func NewMonitor(signalID, symbol string, registry *registrysvc.Registry, cache *pricesvc.Cache, store Persister, sink notify.Sink, poll time.Duration) *Monitor {
	return &Monitor{
		signalID: signalID,
		symbol:   symbol,
		registry: registry,
		cache:    cache,
		store:    store,
		sink:     sink,
		poll:     poll,
	}
}

// Run крутит тики до терминального статуса либо отмены контекста.
func (m *Monitor) Run(ctx context.Context) {
	logger.Info("[MONITOR] %s: started", m.signalID)
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[MONITOR] %s: stopped", m.signalID)
			return
		case <-ticker.C:
			if done := m.tick(ctx, time.Now()); done {
				return
			}
		}
	}
}

// tick — одна итерация оценки. Возвращает true, когда сигнал дошёл до
// терминального статуса и цикл пора заканчивать.
//
// Порядок внутри тика жёсткий: сперва стоп по цене на начало тика,
// потом каскад тейков по возрастанию. Гэп через несколько уровней
// закрывает их все за один тик.
func (m *Monitor) tick(ctx context.Context, now time.Time) bool {
	entry, ok := m.cache.Get(m.symbol, now)
	if !ok {
		// цены нет или протухла: тик пропускаем, решений не принимаем
		return false
	}
	price := entry.Price

	s, ok := m.registry.Get(m.signalID)
	if !ok {
		logger.Warn("[MONITOR] %s: gone from registry", m.signalID)
		return true
	}
	if s.Status.Terminal() {
		return true
	}

	if s.StopCrossed(price) {
		return m.closeByStop(ctx, s, price, now)
	}

	s, filled := m.cascade(ctx, s, price, now)

	if s.TP3Hit {
		return m.complete(ctx, now)
	}

	if _, err := m.registry.MarkPrice(m.signalID, price); err != nil {
		if errors.Is(err, models.ErrTerminalState) {
			return true
		}
		logger.Error("[MONITOR] %s: mark price: %v", m.signalID, err)
	}
	if filled {
		if cur, ok := m.registry.Get(m.signalID); ok {
			_ = m.store.Save(ctx, cur)
		}
	}
	return false
}

// closeByStop закрывает весь остаток позиции по стопу.
func (m *Monitor) closeByStop(ctx context.Context, s *models.Signal, price float64, now time.Time) bool {
	remaining := s.OpenFraction()
	fill := models.Fill{
		Level:        0,
		Price:        price,
		Fraction:     remaining,
		Contribution: s.Move(price) * remaining,
		ObservedAt:   now,
	}

	if _, err := m.registry.ApplyFill(m.signalID, fill); err != nil {
		if errors.Is(err, models.ErrTerminalState) {
			return true
		}
		logger.Error("[MONITOR] %s: stop fill: %v", m.signalID, err)
		return false
	}
	healthsvc.FillsTotal.WithLabelValues("sl").Inc()

	closed, err := m.registry.Close(m.signalID, models.StatusStopped, now)
	if err != nil {
		if errors.Is(err, models.ErrTerminalState) {
			return true
		}
		logger.Error("[MONITOR] %s: close: %v", m.signalID, err)
		return false
	}

	_ = m.store.Save(ctx, closed)
	m.sink.StopHit(closed, fill)
	m.sink.SignalClosed(closed)
	m.registry.Drop(m.signalID)
	logger.Info("[MONITOR] %s: stopped out at %v, roi=%.2f%%", m.signalID, price, closed.CurrentROI)
	return true
}

// cascade проходит тейки по возрастанию. Каждый следующий уровень
// смотрит на флаг предыдущего, уже с учётом филлов этого же тика.
func (m *Monitor) cascade(ctx context.Context, s *models.Signal, price float64, now time.Time) (*models.Signal, bool) {
	filled := false

	for _, level := range []models.TPLevel{models.TP1, models.TP2, models.TP3} {
		if s.LevelHit(level) {
			continue
		}
		if level > models.TP1 && !s.LevelHit(level-1) {
			break
		}
		if !s.LevelCrossed(level, price) {
			break
		}

		fraction := s.LevelFraction(level)
		fill := models.Fill{
			Level:        level,
			Price:        price,
			Fraction:     fraction,
			Contribution: s.Move(price) * fraction,
			ObservedAt:   now,
		}

		updated, err := m.registry.ApplyFill(m.signalID, fill)
		if err != nil {
			logger.Error("[MONITOR] %s: tp%d fill: %v", m.signalID, level, err)
			break
		}
		s = updated
		filled = true
		healthsvc.FillsTotal.WithLabelValues(levelLabel(level)).Inc()

		if level == models.TP1 {
			// после первого тейка стоп переезжает в безубыток
			if err := m.registry.SetStop(m.signalID, s.EntryPrice); err == nil {
				s.StopLoss = s.EntryPrice
			}
		}

		m.sink.TPHit(s, level, fill)
		logger.Info("[MONITOR] %s: tp%d at %v (+%.2f%%)", m.signalID, level, price, fill.Contribution)
	}

	return s, filled
}

// complete закрывает сигнал после TP3.
func (m *Monitor) complete(ctx context.Context, now time.Time) bool {
	closed, err := m.registry.Close(m.signalID, models.StatusCompleted, now)
	if err != nil {
		if errors.Is(err, models.ErrTerminalState) {
			return true
		}
		logger.Error("[MONITOR] %s: close: %v", m.signalID, err)
		return false
	}

	_ = m.store.Save(ctx, closed)
	m.sink.SignalClosed(closed)
	m.registry.Drop(m.signalID)
	logger.Info("[MONITOR] %s: completed, roi=%.2f%%", m.signalID, closed.CurrentROI)
	return true
}

func levelLabel(level models.TPLevel) string {
	switch level {
	case models.TP1:
		return "tp1"
	case models.TP2:
		return "tp2"
	case models.TP3:
		return "tp3"
	}
	return "sl"
}
