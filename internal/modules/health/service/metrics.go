package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики ядра. Отдаются с /metrics health-модуля.

var ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "scanner",
	Name:      "scans_total",
	Help:      "Completed scan cycles.",
})

var SignalsGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "scanner",
	Name:      "signals_generated_total",
	Help:      "Candidates admitted and registered.",
})

var AdmissionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "admission",
	Name:      "rejections_total",
	Help:      "Candidates rejected by the admission controller.",
}, []string{"reason"})

var ActiveSignals = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "signal_engine",
	Subsystem: "registry",
	Name:      "active_signals",
	Help:      "Signals currently in ACTIVE status.",
})

var FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "monitor",
	Name:      "fills_total",
	Help:      "Partial closes by level (tp1/tp2/tp3/sl).",
}, []string{"level"})

var PriceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "pricecache",
	Name:      "updates_total",
	Help:      "Price refresh outcomes.",
}, []string{"outcome"})

var PersistenceRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "persistence",
	Name:      "retries_total",
	Help:      "Save attempts retried due to storage contention.",
})

var PersistenceDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "signal_engine",
	Subsystem: "persistence",
	Name:      "dropped_writes_total",
	Help:      "Saves dropped after exhausting retries.",
})
