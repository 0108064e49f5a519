package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config описывает экспоненциальный backoff с jitter:
// delay = min(BaseDelay * Multiplier^attempt + jitter, MaxDelay).
type Config struct {
	// MaxAttempts — всего попыток, включая первую. <=0 запрещено,
	// validate подставит дефолт.
	MaxAttempts int

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// JitterFactor в [0,1]; 0.1 = ±10% к задержке.
	JitterFactor float64

	// RetryIf решает, имеет ли смысл повторять после этой ошибки.
	// nil = повторяем всё.
	RetryIf func(error) bool

	// OnRetry дёргается перед каждым повтором (для логов/метрик).
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig подходит для обычных сетевых вызовов.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (c *Config) validate() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 4
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

func (c *Config) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.JitterFactor > 0 {
		d += d * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do выполняет operation до первого успеха либо до исчерпания попыток.
// Возвращает последнюю ошибку.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	cfg.validate()

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return lastErr
			}
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		d := cfg.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, d)
		}

		select {
		case <-time.After(d):
		case <-ctx.Done():
			return lastErr
		}
	}

	return lastErr
}

// RetryableError помечает ошибки, которые можно повторять.
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable: RetryableError решает сам, остальное повторяем по умолчанию.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r RetryableError
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// PermanentError оборачивает ошибку, которую повторять бессмысленно.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string   { return e.Err.Error() }
func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// TemporaryError — наоборот, явно временная.
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string   { return e.Err.Error() }
func (e *TemporaryError) Unwrap() error   { return e.Err }
func (e *TemporaryError) Retryable() bool { return true }

func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
