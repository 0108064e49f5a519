package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.InfoLogger = zap.NewNop()
	logger.FatalLogger = zap.NewNop()
	os.Exit(m.Run())
}

type fakeSource struct {
	prices map[string]float64
	fail   map[string]error
	calls  int
}

func (f *fakeSource) Price(_ context.Context, symbol string) (models.Ticker, error) {
	f.calls++
	if err, ok := f.fail[symbol]; ok {
		return models.Ticker{}, err
	}
	return models.Ticker{Symbol: symbol, LastPrice: f.prices[symbol], ObservedAt: time.Now()}, nil
}

type fakeActive struct{ symbols []string }

func (f *fakeActive) ActiveSymbols() []string { return f.symbols }

type fakeMarker struct {
	marked map[string]float64
	err    error
}

func (f *fakeMarker) MarkPrice(_ context.Context, symbol string, price float64) error {
	if f.err != nil {
		return f.err
	}
	if f.marked == nil {
		f.marked = make(map[string]float64)
	}
	f.marked[symbol] = price
	return nil
}

func TestRefreshOnceUpdatesAllActive(t *testing.T) {
	cache := NewCache(5 * time.Second)
	src := &fakeSource{prices: map[string]float64{"BTCUSDT": 65000, "ETHUSDT": 3200}}
	marker := &fakeMarker{}
	u := NewUpdater(cache, src, &fakeActive{symbols: []string{"BTCUSDT", "ETHUSDT"}}, marker, nil, 2*time.Second, time.Second)

	u.refreshOnce(context.Background())

	e, ok := cache.Get("BTCUSDT", time.Now())
	assert.True(t, ok)
	assert.Equal(t, 65000.0, e.Price)

	e, ok = cache.Get("ETHUSDT", time.Now())
	assert.True(t, ok)
	assert.Equal(t, 3200.0, e.Price)

	assert.Equal(t, 65000.0, marker.marked["BTCUSDT"])
}

func TestRefreshOnceFailureKeepsOldEntry(t *testing.T) {
	cache := NewCache(time.Minute)
	t0 := time.Now()
	cache.Set("BTCUSDT", 64900, t0)

	src := &fakeSource{
		prices: map[string]float64{"ETHUSDT": 3200},
		fail:   map[string]error{"BTCUSDT": errors.New("upstream 502")},
	}
	u := NewUpdater(cache, src, &fakeActive{symbols: []string{"BTCUSDT", "ETHUSDT"}}, nil, nil, 2*time.Second, time.Second)

	u.refreshOnce(context.Background())

	// старая цена осталась, соседний символ обновился
	e, ok := cache.Get("BTCUSDT", t0.Add(time.Second))
	assert.True(t, ok)
	assert.Equal(t, 64900.0, e.Price)

	e, ok = cache.Get("ETHUSDT", time.Now())
	assert.True(t, ok)
	assert.Equal(t, 3200.0, e.Price)
}

func TestRefreshOnceNoActiveSymbols(t *testing.T) {
	cache := NewCache(time.Minute)
	src := &fakeSource{}
	u := NewUpdater(cache, src, &fakeActive{}, nil, nil, 2*time.Second, time.Second)

	u.refreshOnce(context.Background())
	assert.Equal(t, 0, src.calls)
}

func TestRefreshOnceMarkerErrorIsNotFatal(t *testing.T) {
	cache := NewCache(time.Minute)
	src := &fakeSource{prices: map[string]float64{"BTCUSDT": 65000}}
	marker := &fakeMarker{err: errors.New("db busy")}
	u := NewUpdater(cache, src, &fakeActive{symbols: []string{"BTCUSDT"}}, marker, nil, 2*time.Second, time.Second)

	u.refreshOnce(context.Background())

	_, ok := cache.Get("BTCUSDT", time.Now())
	assert.True(t, ok, "цена кладётся в кэш даже если mark price не записался")
}
