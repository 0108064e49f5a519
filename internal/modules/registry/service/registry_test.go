package service

import (
	"os"
	"testing"
	"time"

	"signal_engine/internal/models"
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

var fractions = [3]float64{0.25, 0.5, 0.25}

func candidate(symbol string) models.Candidate {
	return models.Candidate{
		Symbol:     symbol,
		Direction:  models.DirectionLong,
		EntryPrice: 100,
		StopLoss:   94,
		TP1:        106,
		TP2:        111,
		TP3:        121,
		ScenarioID: "breakout_vol",
	}
}

func TestRegisterValidates(t *testing.T) {
	r := NewRegistry(fractions, nil)

	s, err := r.Register(candidate("BTCUSDT"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Equal(t, fractions, s.Fractions)

	bad := candidate("ETHUSDT")
	bad.StopLoss = 150
	_, err = r.Register(bad, time.Now())
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, 0, r.ActiveCount("ETHUSDT"))
}

func TestRegisterReturnsCopy(t *testing.T) {
	r := NewRegistry(fractions, nil)
	s, err := r.Register(candidate("BTCUSDT"), time.Now())
	require.NoError(t, err)

	s.EntryPrice = 999
	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, 100.0, got.EntryPrice, "мутация копии не должна трогать реестр")
}

func TestActiveAccounting(t *testing.T) {
	r := NewRegistry(fractions, nil)
	now := time.Now()

	s1, err := r.Register(candidate("BTCUSDT"), now)
	require.NoError(t, err)
	_, err = r.Register(candidate("ETHUSDT"), now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, 1, r.ActiveCount("BTCUSDT"))
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, r.ActiveSymbols())
	assert.Len(t, r.ListActive(), 2)

	_, err = r.Close(s1.ID, models.StatusStopped, now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 0, r.ActiveCount("BTCUSDT"))
	assert.ElementsMatch(t, []string{"ETHUSDT"}, r.ActiveSymbols())
}

func TestApplyFillFlagsAndROI(t *testing.T) {
	r := NewRegistry(fractions, nil)
	s, err := r.Register(candidate("BTCUSDT"), time.Now())
	require.NoError(t, err)

	got, err := r.ApplyFill(s.ID, models.Fill{
		Level: models.TP1, Price: 106, Fraction: 0.25, Contribution: 1.5, ObservedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, got.TP1Hit)
	assert.InDelta(t, 0.75, got.OpenFraction(), 1e-9)
	// 1.5 реализовано + 6% хода на оставшихся 0.75
	assert.InDelta(t, 1.5+6.0*0.75, got.CurrentROI, 1e-9)

	// повторный филл того же уровня — no-op
	again, err := r.ApplyFill(s.ID, models.Fill{Level: models.TP1, Price: 107, Fraction: 0.25, Contribution: 9})
	require.NoError(t, err)
	assert.Len(t, again.Fills, 1)
	assert.InDelta(t, 0.25, again.ClosedFraction(), 1e-9)
}

func TestMarkPrice(t *testing.T) {
	r := NewRegistry(fractions, nil)
	s, err := r.Register(candidate("BTCUSDT"), time.Now())
	require.NoError(t, err)

	got, err := r.MarkPrice(s.ID, 103)
	require.NoError(t, err)
	assert.Equal(t, 103.0, got.CurrentPrice)
	assert.InDelta(t, 3.0, got.CurrentROI, 1e-9)
}

func TestTerminalIsFinal(t *testing.T) {
	r := NewRegistry(fractions, nil)
	s, err := r.Register(candidate("BTCUSDT"), time.Now())
	require.NoError(t, err)

	_, err = r.Close(s.ID, models.StatusStopped, time.Now())
	require.NoError(t, err)

	_, err = r.Close(s.ID, models.StatusCompleted, time.Now())
	assert.ErrorIs(t, err, models.ErrTerminalState)

	_, err = r.ApplyFill(s.ID, models.Fill{Level: models.TP1, Price: 106, Fraction: 0.25})
	assert.ErrorIs(t, err, models.ErrTerminalState)

	_, err = r.MarkPrice(s.ID, 120)
	assert.ErrorIs(t, err, models.ErrTerminalState)

	err = r.SetStop(s.ID, 100)
	assert.ErrorIs(t, err, models.ErrTerminalState)
}

func TestCloseRequiresTerminalStatus(t *testing.T) {
	r := NewRegistry(fractions, nil)
	s, err := r.Register(candidate("BTCUSDT"), time.Now())
	require.NoError(t, err)

	_, err = r.Close(s.ID, models.StatusActive, time.Now())
	assert.Error(t, err)
}

func TestAdoptAndDrop(t *testing.T) {
	r := NewRegistry(fractions, nil)
	now := time.Now()

	s := models.NewSignal(candidate("BTCUSDT"), fractions, now)
	s.TP1Hit = true
	s.Fills = []models.Fill{{Level: models.TP1, Price: 106, Fraction: 0.25, Contribution: 1.5}}

	require.NoError(t, r.Adopt(s))
	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.True(t, got.TP1Hit)
	assert.InDelta(t, 1.5, got.RealizedROI(), 1e-9)

	// повторный Adopt того же id отклоняется
	assert.Error(t, r.Adopt(s))

	_, err := r.Close(s.ID, models.StatusStopped, now)
	require.NoError(t, err)
	r.Drop(s.ID)
	_, ok = r.Get(s.ID)
	assert.False(t, ok)
}
