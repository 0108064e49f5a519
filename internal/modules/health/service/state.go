package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastScanUnix  atomic.Int64 // unix seconds
	lastPriceUnix atomic.Int64
	activeSignals atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) TouchScan(t time.Time)  { s.lastScanUnix.Store(t.Unix()) }
func (s *State) TouchPrice(t time.Time) { s.lastPriceUnix.Store(t.Unix()) }

func (s *State) LastScan() time.Time  { return fromUnix(s.lastScanUnix.Load()) }
func (s *State) LastPrice() time.Time { return fromUnix(s.lastPriceUnix.Load()) }

func (s *State) SetActiveSignals(n int) { s.activeSignals.Store(int64(n)) }
func (s *State) ActiveSignals() int     { return int(s.activeSignals.Load()) }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func fromUnix(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}
