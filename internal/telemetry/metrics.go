package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики engine-демона.
var (
	// TicksTotal — общее число выполненных тиков.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simula_ticks_total",
		Help: "Total number of simulation ticks executed",
	})

	// NodeErrorsTotal — число ошибок вычисления узлов.
	NodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simula_node_errors_total",
		Help: "Total number of node evaluation errors",
	})

	// SnapshotsPublished — число опубликованных снимков состояния.
	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simula_snapshots_published_total",
		Help: "Total number of state snapshots published",
	})

	// ExecutionsActive — число активных executions в памяти engine.
	ExecutionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simula_executions_active",
		Help: "Number of executions currently loaded in the engine",
	})
)
