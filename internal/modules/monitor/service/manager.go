package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	pricesvc "signal_engine/internal/modules/pricecache/service"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/internal/notify"
	"signal_engine/pkg/logger"
)

// Manager управляет мониторами для разных сигналов.
type Manager struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	monitors map[string]context.CancelFunc

	registry *registrysvc.Registry
	cache    *pricesvc.Cache
	store    Persister
	sink     notify.Sink
	poll     time.Duration
}

func NewManager(registry *registrysvc.Registry, cache *pricesvc.Cache, store Persister, sink notify.Sink, poll time.Duration) *Manager {
	return &Manager{
		monitors: make(map[string]context.CancelFunc),
		registry: registry,
		cache:    cache,
		store:    store,
		sink:     sink,
		poll:     poll,
	}
}

// Spawn стартует монитор для сигнала (если ещё не запущен).
func (m *Manager) Spawn(ctx context.Context, signalID, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.monitors[signalID]; running {
		return fmt.Errorf("monitor already running for %s", signalID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.monitors[signalID] = cancel

	mon := NewMonitor(signalID, symbol, m.registry, m.cache, m.store, m.sink, m.poll)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		mon.Run(runCtx)

		// монитор закончился сам — выпилим его из мапы
		m.mu.Lock()
		delete(m.monitors, signalID)
		m.mu.Unlock()
		cancel()
	}()

	return nil
}

// Stop гасит монитор конкретного сигнала (если запущен).
func (m *Manager) Stop(signalID string) error {
	m.mu.Lock()
	cancel, ok := m.monitors[signalID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("monitor not running for %s", signalID)
	}
	delete(m.monitors, signalID)
	m.mu.Unlock()

	cancel()
	return nil
}

// StopAll гасит все мониторы разом и ждёт, пока они допишут стор.
// Ожидание ограничено временем жизни ctx.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.monitors))
	for id, cancel := range m.monitors {
		cancels = append(cancels, cancel)
		delete(m.monitors, id)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("[MONITOR] shutdown: not all monitors finished in time")
	}
}

// Running — сколько мониторов живо.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitors)
}
