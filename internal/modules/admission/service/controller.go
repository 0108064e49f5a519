package service

import (
	"sync"
	"time"

	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/pkg/logger"
)

// Причины отказа. Уходят в лог и в метрику как label.
const (
	ReasonCooldown  = "cooldown"
	ReasonHourlyCap = "hourly_cap"
	ReasonSymbolCap = "symbol_cap"
)

// ActiveCounter — сколько живых сигналов висит на символе (реестр).
type ActiveCounter interface {
	ActiveCount(symbol string) int
}

// Controller решает, пускать ли нового кандидата. Три независимых
// ограничителя, проверяются по порядку: кулдаун символа, глобальный
// часовой лимит, лимит активных на символ. Состояние меняется только
// при допуске: отказ не сдвигает ни кулдаун, ни часовое окно.
type Controller struct {
	mu           sync.Mutex
	lastAccepted map[string]time.Time
	accepted     []time.Time // скользящее часовое окно

	cooldown  time.Duration
	hourlyCap int
	perSymbol int
	active    ActiveCounter
}

func NewController(cooldown time.Duration, hourlyCap, perSymbol int, active ActiveCounter) *Controller {
	return &Controller{
		lastAccepted: make(map[string]time.Time),
		cooldown:     cooldown,
		hourlyCap:    hourlyCap,
		perSymbol:    perSymbol,
		active:       active,
	}
}

// Accept возвращает (true, "") при допуске, иначе (false, причина).
func (c *Controller) Accept(symbol string, now time.Time) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastAccepted[symbol]; ok && now.Sub(last) < c.cooldown {
		c.reject(symbol, ReasonCooldown)
		return false, ReasonCooldown
	}

	c.prune(now)
	if len(c.accepted) >= c.hourlyCap {
		c.reject(symbol, ReasonHourlyCap)
		return false, ReasonHourlyCap
	}

	if c.active.ActiveCount(symbol) >= c.perSymbol {
		c.reject(symbol, ReasonSymbolCap)
		return false, ReasonSymbolCap
	}

	c.lastAccepted[symbol] = now
	c.accepted = append(c.accepted, now)
	return true, ""
}

// prune выкидывает допуски старше часа относительно now.
func (c *Controller) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for ; i < len(c.accepted); i++ {
		if c.accepted[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		c.accepted = append(c.accepted[:0], c.accepted[i:]...)
	}
}

func (c *Controller) reject(symbol, reason string) {
	healthsvc.AdmissionRejections.WithLabelValues(reason).Inc()
	logger.Info("[ADMIT] %s rejected: %s", symbol, reason)
}
