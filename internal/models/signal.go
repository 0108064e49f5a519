package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusStopped   Status = "STOPPED"
)

// Terminal — из этих статусов сигнал уже не выходит.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

// TPLevel — номер тейка, 1..3.
type TPLevel int

const (
	TP1 TPLevel = 1
	TP2 TPLevel = 2
	TP3 TPLevel = 3
)

// ErrTerminalState возвращается при попытке мутировать закрытый сигнал.
// По инвариантам реестра такого быть не должно, поэтому на вызывающей
// стороне это логируемый no-op.
var ErrTerminalState = errors.New("signal is in terminal state")

// ValidationError — кандидат не прошёл проверку уровней/долей и в реестр
// не попадает.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid candidate: " + e.Reason }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Candidate — предложенный сетап от внешнего источника сценариев.
type Candidate struct {
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	EntryPrice   float64   `json:"entry_price"`
	StopLoss     float64   `json:"stop_loss"`
	TP1          float64   `json:"tp1"`
	TP2          float64   `json:"tp2"`
	TP3          float64   `json:"tp3"`
	Score        float64   `json:"score"`
	ScenarioID   string    `json:"scenario_id"`
	ScenarioName string    `json:"scenario_name"`
}

// Validate проверяет порядок уровней для направления.
// LONG: sl < entry < tp1 < tp2 < tp3, SHORT — зеркально.
func (c *Candidate) Validate() error {
	if c.Symbol == "" {
		return &ValidationError{Reason: "empty symbol"}
	}
	if c.EntryPrice <= 0 {
		return &ValidationError{Reason: fmt.Sprintf("entry_price=%v", c.EntryPrice)}
	}
	switch c.Direction {
	case DirectionLong:
		if !(c.StopLoss < c.EntryPrice) {
			return &ValidationError{Reason: "LONG: stop_loss must be below entry"}
		}
		if !(c.EntryPrice < c.TP1 && c.TP1 < c.TP2 && c.TP2 < c.TP3) {
			return &ValidationError{Reason: "LONG: want entry < tp1 < tp2 < tp3"}
		}
	case DirectionShort:
		if !(c.StopLoss > c.EntryPrice) {
			return &ValidationError{Reason: "SHORT: stop_loss must be above entry"}
		}
		if !(c.EntryPrice > c.TP1 && c.TP1 > c.TP2 && c.TP2 > c.TP3) {
			return &ValidationError{Reason: "SHORT: want entry > tp1 > tp2 > tp3"}
		}
	default:
		return &ValidationError{Reason: fmt.Sprintf("direction=%q", c.Direction)}
	}
	return nil
}

// ValidateFractions: три положительные доли, в сумме 1.0.
func ValidateFractions(fr [3]float64) error {
	sum := 0.0
	for i, f := range fr {
		if f <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("fill_fractions[%d]=%v", i, f)}
		}
		sum += f
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return &ValidationError{Reason: fmt.Sprintf("fill_fractions sum=%v, want 1.0", sum)}
	}
	return nil
}

// Fill — частичное закрытие позиции на одном из уровней.
type Fill struct {
	Level        TPLevel   `json:"level"` // 0 = стоп
	Price        float64   `json:"price"`
	Fraction     float64   `json:"fraction"`
	Contribution float64   `json:"contribution"` // вклад в ROI, %
	ObservedAt   time.Time `json:"observed_at"`
}

// Signal — центральная сущность: план + прогресс.
// Мутируется только владеющим монитором через реестр.
type Signal struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`

	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TP1        float64 `json:"tp1"`
	TP2        float64 `json:"tp2"`
	TP3        float64 `json:"tp3"`

	Fractions [3]float64 `json:"fill_fractions"`
	Fills     []Fill     `json:"fills"`

	TP1Hit bool `json:"tp1_hit"`
	TP2Hit bool `json:"tp2_hit"`
	TP3Hit bool `json:"tp3_hit"`
	SLHit  bool `json:"sl_hit"`

	Status       Status  `json:"status"`
	CurrentROI   float64 `json:"current_roi"`
	CurrentPrice float64 `json:"current_price"`

	ScenarioID   string  `json:"scenario_id"`
	ScenarioName string  `json:"scenario_name"`
	Score        float64 `json:"score"`

	CreatedAt time.Time `json:"created_at"`
	ClosedAt  time.Time `json:"closed_at"`
}

// NewSignal собирает сигнал из валидного кандидата. Валидацию кандидата
// и долей делает реестр до вызова.
func NewSignal(c Candidate, fractions [3]float64, now time.Time) *Signal {
	return &Signal{
		ID:           signalID(c, now),
		Symbol:       c.Symbol,
		Direction:    c.Direction,
		EntryPrice:   c.EntryPrice,
		StopLoss:     c.StopLoss,
		TP1:          c.TP1,
		TP2:          c.TP2,
		TP3:          c.TP3,
		Fractions:    fractions,
		Status:       StatusActive,
		ScenarioID:   c.ScenarioID,
		ScenarioName: c.ScenarioName,
		Score:        c.Score,
		CreatedAt:    now,
	}
}

// signalID: SYMBOL_DIRECTION_YYYYmmdd_HHMMSS_scenario8.
func signalID(c Candidate, now time.Time) string {
	sc := c.ScenarioID
	if len(sc) > 8 {
		sc = sc[:8]
	}
	if sc == "" {
		sc = "manual"
	}
	return fmt.Sprintf("%s_%s_%s_%s", c.Symbol, c.Direction, now.UTC().Format("20060102_150405"), sc)
}

// Move — движение цены от входа в процентах со знаком по направлению.
func (s *Signal) Move(price float64) float64 {
	if s.EntryPrice <= 0 {
		return 0
	}
	m := (price - s.EntryPrice) / s.EntryPrice * 100
	if s.Direction == DirectionShort {
		m = -m
	}
	return m
}

// ClosedFraction — сумма долей по всем филлам.
func (s *Signal) ClosedFraction() float64 {
	sum := 0.0
	for _, f := range s.Fills {
		sum += f.Fraction
	}
	return sum
}

// OpenFraction — ещё открытая часть позиции.
func (s *Signal) OpenFraction() float64 {
	open := 1.0 - s.ClosedFraction()
	if open < 0 {
		return 0
	}
	return open
}

// RealizedROI — сумма зафиксированных вкладов.
func (s *Signal) RealizedROI() float64 {
	sum := 0.0
	for _, f := range s.Fills {
		sum += f.Contribution
	}
	return sum
}

// LevelPrice возвращает цену тейка.
func (s *Signal) LevelPrice(level TPLevel) float64 {
	switch level {
	case TP1:
		return s.TP1
	case TP2:
		return s.TP2
	case TP3:
		return s.TP3
	}
	return 0
}

// LevelHit — достигнут ли тейк ранее.
func (s *Signal) LevelHit(level TPLevel) bool {
	switch level {
	case TP1:
		return s.TP1Hit
	case TP2:
		return s.TP2Hit
	case TP3:
		return s.TP3Hit
	}
	return false
}

// LevelFraction — конфигурированная доля уровня.
func (s *Signal) LevelFraction(level TPLevel) float64 {
	if level < TP1 || level > TP3 {
		return 0
	}
	return s.Fractions[level-1]
}

// StopCrossed / LevelCrossed — пересечения цены с уровнями по направлению.
func (s *Signal) StopCrossed(price float64) bool {
	if s.Direction == DirectionLong {
		return price <= s.StopLoss
	}
	return price >= s.StopLoss
}

func (s *Signal) LevelCrossed(level TPLevel, price float64) bool {
	tp := s.LevelPrice(level)
	if tp == 0 {
		return false
	}
	if s.Direction == DirectionLong {
		return price >= tp
	}
	return price <= tp
}

// Clone — глубокая копия для lock-free чтений снаружи реестра.
func (s *Signal) Clone() *Signal {
	cp := *s
	cp.Fills = make([]Fill, len(s.Fills))
	copy(cp.Fills, s.Fills)
	return &cp
}
