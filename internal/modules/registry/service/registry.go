package service

import (
	"fmt"
	"sync"
	"time"

	"signal_engine/internal/models"
	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/pkg/logger"
)

// Registry — владелец всех живых сигналов. Единственное место, где
// сигнал мутируется; наружу всегда уходят глубокие копии. Мутирующие
// методы зовёт только монитор-владелец сигнала, поэтому гонок по
// одному id нет по построению.
type Registry struct {
	mu        sync.RWMutex
	signals   map[string]*models.Signal
	fractions [3]float64
	state     *healthsvc.State
}

func NewRegistry(fractions [3]float64, state *healthsvc.State) *Registry {
	return &Registry{
		signals:   make(map[string]*models.Signal),
		fractions: fractions,
		state:     state,
	}
}

// Register валидирует кандидата и заводит новый ACTIVE сигнал.
func (r *Registry) Register(c models.Candidate, now time.Time) (*models.Signal, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateFractions(r.fractions); err != nil {
		return nil, err
	}

	s := models.NewSignal(c, r.fractions, now)

	r.mu.Lock()
	if _, exists := r.signals[s.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("duplicate signal id %s", s.ID)
	}
	r.signals[s.ID] = s
	r.mu.Unlock()

	r.publishActive()
	logger.Info("[REGISTRY] %s registered (%s %s entry=%v)", s.ID, s.Symbol, s.Direction, s.EntryPrice)
	return s.Clone(), nil
}

// Adopt возвращает в реестр сигнал, поднятый из стора при рестарте.
// Валидация уровней не повторяется: стор — источник истины.
func (r *Registry) Adopt(s *models.Signal) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("adopt: empty signal")
	}
	r.mu.Lock()
	if _, exists := r.signals[s.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("adopt: %s already registered", s.ID)
	}
	r.signals[s.ID] = s.Clone()
	r.mu.Unlock()

	r.publishActive()
	return nil
}

// Get отдаёт копию сигнала.
func (r *Registry) Get(id string) (*models.Signal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signals[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// ListActive — копии всех сигналов в ACTIVE.
func (r *Registry) ListActive() []*models.Signal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Signal, 0, len(r.signals))
	for _, s := range r.signals {
		if s.Status == models.StatusActive {
			out = append(out, s.Clone())
		}
	}
	return out
}

// ActiveSymbols — символы с хотя бы одним ACTIVE сигналом.
// Этот же метод кормит апдейтер цен.
func (r *Registry) ActiveSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, s := range r.signals {
		if s.Status != models.StatusActive {
			continue
		}
		if _, ok := seen[s.Symbol]; ok {
			continue
		}
		seen[s.Symbol] = struct{}{}
		out = append(out, s.Symbol)
	}
	return out
}

// ActiveCount — сколько ACTIVE сигналов висит на символе.
func (r *Registry) ActiveCount(symbol string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.signals {
		if s.Status == models.StatusActive && s.Symbol == symbol {
			n++
		}
	}
	return n
}

// ApplyFill фиксирует частичное закрытие и взводит флаг уровня.
// fill.Level == 0 означает стоп. Повторный филл того же тейка — no-op.
func (r *Registry) ApplyFill(id string, fill models.Fill) (*models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.signals[id]
	if !ok {
		return nil, fmt.Errorf("apply fill: unknown signal %s", id)
	}
	if s.Status.Terminal() {
		return nil, models.ErrTerminalState
	}

	switch fill.Level {
	case models.TP1:
		if s.TP1Hit {
			return s.Clone(), nil
		}
		s.TP1Hit = true
	case models.TP2:
		if s.TP2Hit {
			return s.Clone(), nil
		}
		s.TP2Hit = true
	case models.TP3:
		if s.TP3Hit {
			return s.Clone(), nil
		}
		s.TP3Hit = true
	case 0:
		if s.SLHit {
			return s.Clone(), nil
		}
		s.SLHit = true
	default:
		return nil, fmt.Errorf("apply fill: bad level %d", fill.Level)
	}

	s.Fills = append(s.Fills, fill)
	s.CurrentROI = s.RealizedROI() + s.Move(fill.Price)*s.OpenFraction()
	s.CurrentPrice = fill.Price
	return s.Clone(), nil
}

// SetStop переносит стоп (безубыток после TP1).
func (r *Registry) SetStop(id string, stop float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.signals[id]
	if !ok {
		return fmt.Errorf("set stop: unknown signal %s", id)
	}
	if s.Status.Terminal() {
		return models.ErrTerminalState
	}
	s.StopLoss = stop
	return nil
}

// MarkPrice пересчитывает плавающий ROI по последней цене.
func (r *Registry) MarkPrice(id string, price float64) (*models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.signals[id]
	if !ok {
		return nil, fmt.Errorf("mark price: unknown signal %s", id)
	}
	if s.Status.Terminal() {
		return nil, models.ErrTerminalState
	}
	s.CurrentPrice = price
	s.CurrentROI = s.RealizedROI() + s.Move(price)*s.OpenFraction()
	return s.Clone(), nil
}

// Close переводит сигнал в терминальный статус. Повторное закрытие —
// ErrTerminalState, вызывающий логирует и идёт дальше.
func (r *Registry) Close(id string, status models.Status, now time.Time) (*models.Signal, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("close: %s is not a terminal status", status)
	}

	r.mu.Lock()
	s, ok := r.signals[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("close: unknown signal %s", id)
	}
	if s.Status.Terminal() {
		r.mu.Unlock()
		return nil, models.ErrTerminalState
	}
	s.Status = status
	s.ClosedAt = now
	s.CurrentROI = s.RealizedROI()
	cp := s.Clone()
	r.mu.Unlock()

	r.publishActive()
	logger.Info("[REGISTRY] %s closed: %s roi=%.2f%%", id, status, cp.CurrentROI)
	return cp, nil
}

// Drop выкидывает терминальный сигнал из памяти (история живёт в сторе).
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	s, ok := r.signals[id]
	if ok && s.Status.Terminal() {
		delete(r.signals, id)
	}
	r.mu.Unlock()
}

func (r *Registry) publishActive() {
	r.mu.RLock()
	n := 0
	for _, s := range r.signals {
		if s.Status == models.StatusActive {
			n++
		}
	}
	r.mu.RUnlock()

	healthsvc.ActiveSignals.Set(float64(n))
	if r.state != nil {
		r.state.SetActiveSignals(n)
	}
}
