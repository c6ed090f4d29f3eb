// Package metrics contadores Prometheus del motor de movimientos.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.MetricsRecorder = (*Recorder)(nil)

// Recorder implementa inventory.MetricsRecorder sobre un registry inyectado.
type Recorder struct {
	recorded *prometheus.CounterVec
	rejected *prometheus.CounterVec
	retries  prometheus.Counter
}

// NewRecorder registra los contadores en registry (DefaultRegisterer si es nil).
func NewRecorder(registry prometheus.Registerer) *Recorder {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Recorder{
		recorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_ledger",
				Name:      "movements_recorded_total",
				Help:      "Movimientos confirmados por tipo",
			},
			[]string{"type"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_ledger",
				Name:      "movements_rejected_total",
				Help:      "Movimientos rechazados por motivo",
			},
			[]string{"reason"},
		),
		retries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stock_ledger",
				Name:      "conflict_retries_total",
				Help:      "Reintentos por conflicto de concurrencia",
			},
		),
	}
}

func (r *Recorder) MovementRecorded(movementType entity.MovementType) {
	r.recorded.WithLabelValues(string(movementType)).Inc()
}

func (r *Recorder) MovementRejected(reason string) {
	r.rejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) ConflictRetried() {
	r.retries.Inc()
}
