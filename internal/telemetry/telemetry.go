// Package telemetry wires the simulator's structured logging and metrics.
package telemetry

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// NewLogger returns a development-mode sugared logger. Callers are
// expected to defer Sync() on the returned logger's underlying *zap.Logger
// where one is available.
func NewLogger() (*zap.SugaredLogger, error) {
	base, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

// Metrics holds the counters the simulator increments as it processes
// transactions and mines blocks.
type Metrics struct {
	TxTotal       prometheus.Counter
	TxFailedTotal prometheus.Counter
	VMErrorsTotal prometheus.Counter
	BlocksTotal   prometheus.Counter
}

// NewMetrics registers a fresh set of counters against reg. Passing nil
// creates a private registry, so independent Simulator instances (as in
// tests) never collide over duplicate metric names; pass
// prometheus.DefaultRegisterer explicitly to expose the counters on a
// process-wide /metrics endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		TxTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evmsim_tx_total",
			Help: "Total transactions submitted to TxSend.",
		}),
		TxFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evmsim_tx_failed_total",
			Help: "Transactions that failed validation or dispatch.",
		}),
		VMErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evmsim_vm_errors_total",
			Help: "Contract executions that aborted with a VM error.",
		}),
		BlocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evmsim_blocks_total",
			Help: "Blocks appended to the chain.",
		}),
	}
	reg.MustRegister(m.TxTotal, m.TxFailedTotal, m.VMErrorsTotal, m.BlocksTotal)
	return m
}

// Snapshot is a point-in-time, read-only view of the counters, returned by
// Simulator.Metrics() so callers don't need a prometheus import to read them.
type Snapshot struct {
	TxTotal       float64
	TxFailedTotal float64
	VMErrorsTotal float64
	BlocksTotal   float64
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TxTotal:       readCounter(m.TxTotal),
		TxFailedTotal: readCounter(m.TxFailedTotal),
		VMErrorsTotal: readCounter(m.VMErrorsTotal),
		BlocksTotal:   readCounter(m.BlocksTotal),
	}
}

func readCounter(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
