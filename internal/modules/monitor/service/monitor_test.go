package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"signal_engine/internal/models"
	pricesvc "signal_engine/internal/modules/pricecache/service"
	registrysvc "signal_engine/internal/modules/registry/service"
	"signal_engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.InfoLogger = zap.NewNop()
	logger.FatalLogger = zap.NewNop()
	os.Exit(m.Run())
}

type spyStore struct {
	mu    sync.Mutex
	saves []*models.Signal
}

func (s *spyStore) Save(_ context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, sig.Clone())
	return nil
}

func (s *spyStore) last() *models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil
	}
	return s.saves[len(s.saves)-1]
}

type spySink struct {
	mu     sync.Mutex
	events []string
}

func (s *spySink) record(e string) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *spySink) NewSignal(*models.Signal) { s.record("new") }
func (s *spySink) TPHit(_ *models.Signal, level models.TPLevel, _ models.Fill) {
	s.record(levelLabel(level))
}
func (s *spySink) StopHit(*models.Signal, models.Fill) { s.record("sl") }
func (s *spySink) SignalClosed(sig *models.Signal)     { s.record("closed:" + string(sig.Status)) }
func (s *spySink) Sendf(format string, args ...any)    {}

type fixture struct {
	registry *registrysvc.Registry
	cache    *pricesvc.Cache
	store    *spyStore
	sink     *spySink
	monitor  *Monitor
	signal   *models.Signal
	now      time.Time
}

func newFixture(t *testing.T, c models.Candidate) *fixture {
	t.Helper()
	reg := registrysvc.NewRegistry([3]float64{0.25, 0.5, 0.25}, nil)
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	s, err := reg.Register(c, now)
	require.NoError(t, err)

	cache := pricesvc.NewCache(5 * time.Second)
	store := &spyStore{}
	sink := &spySink{}
	mon := NewMonitor(s.ID, s.Symbol, reg, cache, store, sink, 5*time.Second)

	return &fixture{registry: reg, cache: cache, store: store, sink: sink, monitor: mon, signal: s, now: now}
}

func (f *fixture) tickAt(price float64) bool {
	f.now = f.now.Add(5 * time.Second)
	f.cache.Set(f.signal.Symbol, price, f.now)
	return f.monitor.tick(context.Background(), f.now)
}

func longCandidate() models.Candidate {
	return models.Candidate{
		Symbol:     "BTCUSDT",
		Direction:  models.DirectionLong,
		EntryPrice: 100,
		StopLoss:   94,
		TP1:        106,
		TP2:        111,
		TP3:        121,
		ScenarioID: "breakout_vol",
	}
}

func TestFullTakeProfitPath(t *testing.T) {
	f := newFixture(t, longCandidate())

	assert.False(t, f.tickAt(103))
	s, _ := f.registry.Get(f.signal.ID)
	assert.InDelta(t, 3.0, s.CurrentROI, 1e-9)

	assert.False(t, f.tickAt(106))
	s, _ = f.registry.Get(f.signal.ID)
	assert.True(t, s.TP1Hit)
	assert.Equal(t, 100.0, s.StopLoss, "после TP1 стоп в безубытке")
	assert.InDelta(t, 1.5+6.0*0.75, s.CurrentROI, 1e-9)

	assert.False(t, f.tickAt(111))
	s, _ = f.registry.Get(f.signal.ID)
	assert.True(t, s.TP2Hit)
	assert.InDelta(t, 1.5+5.5, s.RealizedROI(), 1e-9)

	assert.True(t, f.tickAt(121))

	final := f.store.last()
	require.NotNil(t, final)
	assert.Equal(t, models.StatusCompleted, final.Status)
	// 6*0.25 + 11*0.5 + 21*0.25 = 12.25
	assert.InDelta(t, 12.25, final.CurrentROI, 1e-9)
	assert.Contains(t, f.sink.events, "tp1")
	assert.Contains(t, f.sink.events, "tp2")
	assert.Contains(t, f.sink.events, "tp3")
	assert.Contains(t, f.sink.events, "closed:COMPLETED")

	// сигнал ушёл из реестра
	_, ok := f.registry.Get(f.signal.ID)
	assert.False(t, ok)
}

func TestStraightToStop(t *testing.T) {
	f := newFixture(t, longCandidate())

	assert.True(t, f.tickAt(94))

	final := f.store.last()
	require.NotNil(t, final)
	assert.Equal(t, models.StatusStopped, final.Status)
	assert.InDelta(t, -6.0, final.CurrentROI, 1e-9)
	assert.InDelta(t, 1.0, final.ClosedFraction(), 1e-9, "стоп закрывает весь остаток")
	assert.Equal(t, []string{"sl", "closed:STOPPED"}, f.sink.events)
}

func TestBreakevenStopAfterTP1(t *testing.T) {
	f := newFixture(t, longCandidate())

	assert.False(t, f.tickAt(106)) // TP1, стоп -> 100
	assert.True(t, f.tickAt(100))  // откат в безубыток

	final := f.store.last()
	require.NotNil(t, final)
	assert.Equal(t, models.StatusStopped, final.Status)
	// 1.5 с TP1 + 0 на остатке
	assert.InDelta(t, 1.5, final.CurrentROI, 1e-9)
}

func TestGapFillsWholeCascade(t *testing.T) {
	f := newFixture(t, longCandidate())

	assert.True(t, f.tickAt(125))

	final := f.store.last()
	require.NotNil(t, final)
	assert.Equal(t, models.StatusCompleted, final.Status)
	// все три уровня закрыты по факт-цене гэпа: 25% * (0.25+0.5+0.25)
	assert.InDelta(t, 25.0, final.CurrentROI, 1e-9)
	assert.Len(t, final.Fills, 3)
}

func TestStalePriceSkipsTick(t *testing.T) {
	f := newFixture(t, longCandidate())

	f.cache.Set("BTCUSDT", 94, f.now)
	// смотрим сильно позже записи: цена протухла
	done := f.monitor.tick(context.Background(), f.now.Add(time.Minute))
	assert.False(t, done)

	s, ok := f.registry.Get(f.signal.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Empty(t, f.sink.events)
}

func TestRepeatedLevelIsNotRefilled(t *testing.T) {
	f := newFixture(t, longCandidate())

	assert.False(t, f.tickAt(106))
	assert.False(t, f.tickAt(107))
	assert.False(t, f.tickAt(106))

	s, _ := f.registry.Get(f.signal.ID)
	assert.Len(t, s.Fills, 1)
	assert.InDelta(t, 0.25, s.ClosedFraction(), 1e-9)
}

func TestShortSignalStop(t *testing.T) {
	c := longCandidate()
	c.Direction = models.DirectionShort
	c.StopLoss = 106
	c.TP1, c.TP2, c.TP3 = 94, 89, 79
	f := newFixture(t, c)

	assert.True(t, f.tickAt(106))

	final := f.store.last()
	require.NotNil(t, final)
	assert.Equal(t, models.StatusStopped, final.Status)
	assert.InDelta(t, -6.0, final.CurrentROI, 1e-9)
}

func TestManagerLifecycle(t *testing.T) {
	reg := registrysvc.NewRegistry([3]float64{0.25, 0.5, 0.25}, nil)
	cache := pricesvc.NewCache(5 * time.Second)
	m := NewManager(reg, cache, &spyStore{}, &spySink{}, time.Hour)

	ctx := context.Background()
	require.NoError(t, m.Spawn(ctx, "sig-1", "BTCUSDT"))
	assert.Error(t, m.Spawn(ctx, "sig-1", "BTCUSDT"), "повторный Spawn того же сигнала")
	require.NoError(t, m.Spawn(ctx, "sig-2", "ETHUSDT"))
	assert.Equal(t, 2, m.Running())

	require.NoError(t, m.Stop("sig-1"))
	assert.Error(t, m.Stop("sig-1"))

	m.StopAll(context.Background())
	assert.Equal(t, 0, m.Running())
}

type blockingStore struct {
	spyStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Save(ctx context.Context, sig *models.Signal) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.spyStore.Save(ctx, sig)
}

func TestStopAllWaitsForWrites(t *testing.T) {
	reg := registrysvc.NewRegistry([3]float64{0.25, 0.5, 0.25}, nil)
	now := time.Now()
	s, err := reg.Register(longCandidate(), now)
	require.NoError(t, err)

	cache := pricesvc.NewCache(5 * time.Second)
	cache.Set(s.Symbol, 106, now) // первый же тик зафиллит TP1
	store := &blockingStore{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(reg, cache, store, &spySink{}, 10*time.Millisecond)

	require.NoError(t, m.Spawn(context.Background(), s.ID, s.Symbol))
	<-store.entered // монитор завис внутри записи

	stopped := make(chan struct{})
	go func() {
		m.StopAll(context.Background())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("StopAll вернулся до того, как монитор дописал стор")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("StopAll не дождался завершения мониторов")
	}

	final := store.last()
	require.NotNil(t, final)
	assert.True(t, final.TP1Hit)
}
