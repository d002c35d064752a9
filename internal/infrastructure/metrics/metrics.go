package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

// Metrics provides observability for the room lifecycle.
// Tracks operation outcomes, operation latency and the live room population.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	JoinsRejected     *prometheus.CounterVec
	RoomsExpired      prometheus.Counter
	AuditPublishFails prometheus.Counter

	registerer prometheus.Registerer
}

// New registers every room metric with reg. A nil reg means the default
// Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomkeeper_room_operations_total",
			Help: "Room operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomkeeper_room_operation_duration_seconds",
			Help:    "Duration of room operations, including the store write",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		JoinsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomkeeper_joins_rejected_total",
			Help: "Join attempts refused, by reason",
		}, []string{"reason"}),
		RoomsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomkeeper_rooms_expired_total",
			Help: "Dissolved rooms dropped from the history",
		}),
		AuditPublishFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomkeeper_audit_publish_failures_total",
			Help: "Audit events that could not be published",
		}),
		registerer: reg,
	}
}

// RegisterStats exposes the registry population as gauges read on scrape.
func (m *Metrics) RegisterStats(stats func() domain.Stats) {
	factory := promauto.With(m.registerer)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "roomkeeper_rooms_open",
		Help: "Rooms currently open",
	}, func() float64 { return float64(stats().OpenRooms) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "roomkeeper_rooms_dissolved",
		Help: "Dissolved rooms still retained in the history",
	}, func() float64 { return float64(stats().DissolvedRooms) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "roomkeeper_participants",
		Help: "Participants across all open rooms",
	}, func() float64 { return float64(stats().TotalParticipants) })
}

// ObserveOperation records the outcome and latency of one operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementJoinRejected(reason string) {
	if m == nil {
		return
	}
	m.JoinsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddRoomsExpired(n int) {
	if m == nil {
		return
	}
	m.RoomsExpired.Add(float64(n))
}

func (m *Metrics) IncrementAuditPublishFailure() {
	if m == nil {
		return
	}
	m.AuditPublishFails.Inc()
}

// Outcome maps an operation error onto a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrInvalidPassword):
		return "invalid_password"
	case errors.Is(err, domain.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, domain.ErrAlreadyDissolved):
		return "already_dissolved"
	default:
		return "error"
	}
}
