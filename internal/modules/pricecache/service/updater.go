package service

import (
	"context"
	"time"

	"signal_engine/internal/models"
	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/pkg/logger"
)

// PriceSource — откуда берём последнюю цену (маркет-дата клиент).
type PriceSource interface {
	Price(ctx context.Context, symbol string) (models.Ticker, error)
}

// ActiveSet отдаёт символы, по которым сейчас есть активные сигналы.
type ActiveSet interface {
	ActiveSymbols() []string
}

// Marker — best-effort запись mark price в стор. Ошибки не фатальны.
type Marker interface {
	MarkPrice(ctx context.Context, symbol string, price float64) error
}

// Updater — единственный писатель кэша цен. Крутится в фоне и раз в
// PriceRefreshInterval обновляет цены всех активных символов.
type Updater struct {
	cache   *Cache
	source  PriceSource
	active  ActiveSet
	marker  Marker
	state   *healthsvc.State
	period  time.Duration
	timeout time.Duration
}

func NewUpdater(cache *Cache, source PriceSource, active ActiveSet, marker Marker, state *healthsvc.State, period, timeout time.Duration) *Updater {
	return &Updater{
		cache:   cache,
		source:  source,
		active:  active,
		marker:  marker,
		state:   state,
		period:  period,
		timeout: timeout,
	}
}

// Run блокируется до отмены контекста.
func (u *Updater) Run(ctx context.Context) {
	logger.Info("[PRICE] updater started, period %s", u.period)
	ticker := time.NewTicker(u.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[PRICE] updater stopped")
			return
		case <-ticker.C:
			u.refreshOnce(ctx)
		}
	}
}

// refreshOnce обновляет все активные символы за один проход.
// Неудача по одному символу не трогает остальных, старая запись в кэше
// остаётся как была и просто протухнет по TTL.
func (u *Updater) refreshOnce(ctx context.Context) {
	symbols := u.active.ActiveSymbols()
	if len(symbols) == 0 {
		return
	}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if err := u.refreshSymbol(ctx, symbol); err != nil {
			healthsvc.PriceUpdates.WithLabelValues("error").Inc()
			logger.Error("[PRICE] %s: refresh failed: %v", symbol, err)
			continue
		}
		healthsvc.PriceUpdates.WithLabelValues("ok").Inc()
	}

	if u.state != nil {
		u.state.TouchPrice(time.Now())
	}
}

func (u *Updater) refreshSymbol(ctx context.Context, symbol string) error {
	cctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	t, err := u.source.Price(cctx, symbol)
	if err != nil {
		return err
	}

	at := t.ObservedAt
	if at.IsZero() {
		at = time.Now()
	}
	u.cache.Set(symbol, t.LastPrice, at)

	if u.marker != nil {
		if err := u.marker.MarkPrice(cctx, symbol, t.LastPrice); err != nil {
			// mark price в сторе — не критичный путь
			logger.Warn("[PRICE] %s: mark price not persisted: %v", symbol, err)
		}
	}
	return nil
}
