package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longCandidate() Candidate {
	return Candidate{
		Symbol:     "BTCUSDT",
		Direction:  DirectionLong,
		EntryPrice: 100,
		StopLoss:   95,
		TP1:        105,
		TP2:        110,
		TP3:        120,
		ScenarioID: "breakout_vol",
	}
}

func TestCandidateValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Candidate)
		ok     bool
	}{
		{"valid long", func(c *Candidate) {}, true},
		{"valid short", func(c *Candidate) {
			c.Direction = DirectionShort
			c.StopLoss = 105
			c.TP1, c.TP2, c.TP3 = 95, 90, 80
		}, true},
		{"long sl above entry", func(c *Candidate) { c.StopLoss = 101 }, false},
		{"long tp order broken", func(c *Candidate) { c.TP2 = 104 }, false},
		{"long tp1 below entry", func(c *Candidate) { c.TP1 = 99 }, false},
		{"short tp order broken", func(c *Candidate) {
			c.Direction = DirectionShort
			c.StopLoss = 105
			c.TP1, c.TP2, c.TP3 = 95, 97, 80
		}, false},
		{"zero entry", func(c *Candidate) { c.EntryPrice = 0 }, false},
		{"empty symbol", func(c *Candidate) { c.Symbol = "" }, false},
		{"unknown direction", func(c *Candidate) { c.Direction = "SIDEWAYS" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := longCandidate()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
			}
		})
	}
}

func TestValidateFractions(t *testing.T) {
	assert.NoError(t, ValidateFractions([3]float64{0.25, 0.5, 0.25}))
	assert.Error(t, ValidateFractions([3]float64{0.25, 0.5, 0.3}))
	assert.Error(t, ValidateFractions([3]float64{0.5, 0.5, 0}))
	assert.Error(t, ValidateFractions([3]float64{1.2, -0.1, -0.1}))
}

func TestSignalMove(t *testing.T) {
	s := NewSignal(longCandidate(), [3]float64{0.25, 0.5, 0.25}, time.Now())
	assert.InDelta(t, 6.0, s.Move(106), 1e-9)
	assert.InDelta(t, -6.0, s.Move(94), 1e-9)

	c := longCandidate()
	c.Direction = DirectionShort
	c.StopLoss = 105
	c.TP1, c.TP2, c.TP3 = 95, 90, 80
	sh := NewSignal(c, [3]float64{0.25, 0.5, 0.25}, time.Now())
	assert.InDelta(t, 6.0, sh.Move(94), 1e-9)
}

func TestSignalFractions(t *testing.T) {
	s := NewSignal(longCandidate(), [3]float64{0.25, 0.5, 0.25}, time.Now())
	assert.InDelta(t, 1.0, s.OpenFraction(), 1e-9)

	s.Fills = append(s.Fills, Fill{Level: TP1, Price: 106, Fraction: 0.25, Contribution: 1.5})
	assert.InDelta(t, 0.25, s.ClosedFraction(), 1e-9)
	assert.InDelta(t, 0.75, s.OpenFraction(), 1e-9)
	assert.InDelta(t, 1.5, s.RealizedROI(), 1e-9)
}

func TestSignalCrossings(t *testing.T) {
	s := NewSignal(longCandidate(), [3]float64{0.25, 0.5, 0.25}, time.Now())
	assert.True(t, s.StopCrossed(94))
	assert.True(t, s.StopCrossed(95))
	assert.False(t, s.StopCrossed(96))
	assert.True(t, s.LevelCrossed(TP1, 105))
	assert.False(t, s.LevelCrossed(TP2, 109))
	assert.True(t, s.LevelCrossed(TP3, 121))
}

func TestSignalID(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	s := NewSignal(longCandidate(), [3]float64{0.25, 0.5, 0.25}, now)
	assert.Equal(t, "BTCUSDT_LONG_20250314_092653_breakout", s.ID)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSignal(longCandidate(), [3]float64{0.25, 0.5, 0.25}, time.Now())
	s.Fills = append(s.Fills, Fill{Level: TP1, Fraction: 0.25})

	cp := s.Clone()
	cp.Fills[0].Fraction = 0.99
	assert.InDelta(t, 0.25, s.Fills[0].Fraction, 1e-9)
}
