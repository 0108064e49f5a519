package service

import (
	"context"
	"sync"

	"signal_engine/internal/models"
)

// Memory — стор без базы: для локального запуска без DSN и для тестов.
type Memory struct {
	mu   sync.RWMutex
	data map[string]*models.Signal
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]*models.Signal)}
}

func (m *Memory) Save(_ context.Context, s *models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = s.Clone()
	return nil
}

func (m *Memory) LoadActive(_ context.Context) ([]*models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Signal, 0, len(m.data))
	for _, s := range m.data {
		if s.Status == models.StatusActive {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *Memory) MarkPrice(_ context.Context, symbol string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.data {
		if s.Status == models.StatusActive && s.Symbol == symbol {
			s.CurrentPrice = price
		}
	}
	return nil
}

// Get — для тестов.
func (m *Memory) Get(id string) (*models.Signal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}
