package service

import (
	"context"
	"sync"
	"time"

	"signal_engine/internal/models"
	admsvc "signal_engine/internal/modules/admission/service"
	healthsvc "signal_engine/internal/modules/health/service"
	registrysvc "signal_engine/internal/modules/registry/service"
	scenariosvc "signal_engine/internal/modules/scenario/service"
	"signal_engine/internal/notify"
	"signal_engine/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Snapshotter — срез рынка по символу (маркет-дата клиент).
type Snapshotter interface {
	Snapshot(ctx context.Context, symbol string) (models.Snapshot, error)
}

// Saver — запись сигнала в стор.
type Saver interface {
	Save(ctx context.Context, s *models.Signal) error
}

// Spawner стартует монитор для свежего сигнала.
type Spawner interface {
	Spawn(ctx context.Context, signalID, symbol string) error
}

// Scanner раз в ScanInterval прогоняет watchlist через источник
// сценариев. Символы обрабатываются параллельно, но не больше
// concurrency за раз. Ошибка одного символа не валит цикл.
type Scanner struct {
	symbols     []string
	market      Snapshotter
	source      scenariosvc.Source
	admission   *admsvc.Controller
	registry    *registrysvc.Registry
	store       Saver
	sink        notify.Sink
	monitors    Spawner
	state       *healthsvc.State
	interval    time.Duration
	concurrency int
}

func NewScanner(
	symbols []string,
	market Snapshotter,
	source scenariosvc.Source,
	admission *admsvc.Controller,
	registry *registrysvc.Registry,
	store Saver,
	sink notify.Sink,
	monitors Spawner,
	state *healthsvc.State,
	interval time.Duration,
	concurrency int,
) *Scanner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scanner{
		symbols:     symbols,
		market:      market,
		source:      source,
		admission:   admission,
		registry:    registry,
		store:       store,
		sink:        sink,
		monitors:    monitors,
		state:       state,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Run — первый проход сразу, дальше по тикеру.
func (s *Scanner) Run(ctx context.Context) {
	logger.Info("[SCAN] started: %d symbols, every %s", len(s.symbols), s.interval)

	s.scanOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[SCAN] stopped")
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

// scanOnce — один проход по всем символам.
func (s *Scanner) scanOnce(ctx context.Context) {
	span := opentracing.StartSpan("scan_cycle")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	started := time.Now()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		generated int
		failed    int
	)
	sem := make(chan struct{}, s.concurrency)

	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			ok, err := s.scanSymbol(ctx, symbol)
			mu.Lock()
			if err != nil {
				failed++
			} else if ok {
				generated++
			}
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	healthsvc.ScansTotal.Inc()
	if s.state != nil {
		s.state.TouchScan(time.Now())
	}
	span.SetTag("generated", generated)
	span.SetTag("failed", failed)
	logger.Info("[SCAN] cycle done in %s: %d symbols, %d signals, %d failed",
		time.Since(started).Round(time.Millisecond), len(s.symbols), generated, failed)
}

// scanSymbol возвращает (true, nil), если символ породил сигнал.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string) (bool, error) {
	snap, err := s.market.Snapshot(ctx, symbol)
	if err != nil {
		logger.Error("[SCAN] %s: snapshot: %v", symbol, err)
		return false, err
	}

	candidate, matched, err := s.source.Match(ctx, snap)
	if err != nil {
		logger.Error("[SCAN] %s: scenario: %v", symbol, err)
		return false, err
	}
	if !matched {
		return false, nil
	}

	now := time.Now()
	if ok, reason := s.admission.Accept(symbol, now); !ok {
		logger.Info("[SCAN] %s: candidate dropped: %s", symbol, reason)
		return false, nil
	}

	sig, err := s.registry.Register(candidate, now)
	if err != nil {
		// кандидат не прошёл валидацию: допуск уже потрачен, но
		// кривые уровни от источника — его проблема, не наша
		logger.Error("[SCAN] %s: register: %v", symbol, err)
		return false, err
	}

	_ = s.store.Save(ctx, sig)
	s.sink.NewSignal(sig)
	healthsvc.SignalsGenerated.Inc()

	if err := s.monitors.Spawn(ctx, sig.ID, sig.Symbol); err != nil {
		logger.Error("[SCAN] %s: spawn monitor: %v", symbol, err)
		return true, err
	}

	logger.Info("[SCAN] %s: signal %s admitted", symbol, sig.ID)
	return true, nil
}
