package models

import "time"

// Ticker — последняя цена по символу от маркет-дата клиента.
type Ticker struct {
	Symbol     string
	LastPrice  float64
	ObservedAt time.Time
}

type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Start  time.Time
	End    time.Time
}

// Snapshot — срез рынка по символу, который скармливается источнику
// сценариев. Для ядра он непрозрачен, ядро его только перекладывает.
type Snapshot struct {
	Symbol       string
	LastPrice    float64
	High24h      float64
	Low24h       float64
	Volume24h    float64
	PriceChg24h  float64
	Candles      []Candle
	ObservedAt   time.Time
}
