package service

import (
	"context"

	"signal_engine/internal/models"
)

// Store — долговременное хранилище сигналов. Боевая реализация — Pg,
// без DSN поднимается Memory.
type Store interface {
	// Save апсертит сигнал целиком.
	Save(ctx context.Context, s *models.Signal) error
	// LoadActive возвращает все сигналы в статусе ACTIVE.
	LoadActive(ctx context.Context) ([]*models.Signal, error)
	// MarkPrice обновляет current_price активных сигналов символа.
	MarkPrice(ctx context.Context, symbol string, price float64) error
}
