package service

import (
	"sync"
	"time"
)

// Entry — последняя цена по символу. Заменяется только целиком.
type Entry struct {
	Symbol     string
	Price      float64
	ObservedAt time.Time
}

// Cache — single-writer/multi-reader стор последних цен.
// Пишет в него только PriceUpdater (плюс ws-стрим через тот же Set),
// читают мониторы. Читатели обязаны проверять свежесть через Get.
type Cache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]Entry
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:  ttl,
		data: make(map[string]Entry),
	}
}

// Set заменяет запись символа целиком.
func (c *Cache) Set(symbol string, price float64, at time.Time) {
	c.mu.Lock()
	c.data[symbol] = Entry{Symbol: symbol, Price: price, ObservedAt: at}
	c.mu.Unlock()
}

// Get возвращает запись, если она есть и не старше TTL относительно now.
// Протухшая запись — это "пропусти тик", а не ошибка.
func (c *Cache) Get(symbol string, now time.Time) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.data[symbol]
	c.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && now.Sub(e.ObservedAt) > c.ttl {
		return Entry{}, false
	}
	return e, true
}

// Peek отдаёт запись без проверки TTL (для healthz/отладки).
func (c *Cache) Peek(symbol string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.data[symbol]
	c.mu.RUnlock()
	return e, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
