package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcurementMetrics records counters for the order and inventory engines.
type ProcurementMetrics struct {
	ordersPlaced         *prometheus.CounterVec
	reservations         *prometheus.CounterVec
	shortfallUnits       prometheus.Counter
	backordersOpened     prometheus.Counter
	backordersCompleted  prometheus.Counter
	shipmentsRecorded    *prometheus.CounterVec
	reservationDuration  prometheus.Histogram
	outboxPublishSuccess prometheus.Counter
	outboxPublishFailure prometheus.Counter
}

// NewProcurementMetrics registers procurement metrics on the provided registerer.
func NewProcurementMetrics(reg prometheus.Registerer) *ProcurementMetrics {
	if reg == nil {
		return &ProcurementMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders accepted by the order engine.",
	}, []string{"outcome"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_total",
		Help: "Stock reservation attempts by result.",
	}, []string{"result"})
	shortfallUnits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_shortfall_units_total",
		Help: "Units that could not be reserved at processing time.",
	})
	backordersOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backorders_opened_total",
		Help: "Backorders opened or extended.",
	})
	backordersCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backorders_completed_total",
		Help: "Backorders completed by supplier deliveries.",
	})
	shipmentsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_recorded_total",
		Help: "Shipments recorded by completeness.",
	}, []string{"completeness"})
	reservationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reservation_duration_seconds",
		Help:    "Duration of reservation transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	outboxPublishSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_success_total",
		Help: "Outbox events published successfully.",
	})
	outboxPublishFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failure_total",
		Help: "Outbox events that failed to publish.",
	})
	reg.MustRegister(
		ordersPlaced,
		reservations,
		shortfallUnits,
		backordersOpened,
		backordersCompleted,
		shipmentsRecorded,
		reservationDuration,
		outboxPublishSuccess,
		outboxPublishFailure,
	)
	return &ProcurementMetrics{
		ordersPlaced:         ordersPlaced,
		reservations:         reservations,
		shortfallUnits:       shortfallUnits,
		backordersOpened:     backordersOpened,
		backordersCompleted:  backordersCompleted,
		shipmentsRecorded:    shipmentsRecorded,
		reservationDuration:  reservationDuration,
		outboxPublishSuccess: outboxPublishSuccess,
		outboxPublishFailure: outboxPublishFailure,
	}
}

// IncOrderPlaced increments the placed-order counter with the given outcome label.
func (m *ProcurementMetrics) IncOrderPlaced(outcome string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReservation increments the reservation counter with the given result label.
func (m *ProcurementMetrics) IncReservation(result string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

// AddShortfall records units left unreserved after processing.
func (m *ProcurementMetrics) AddShortfall(units int) {
	if m == nil || m.shortfallUnits == nil || units <= 0 {
		return
	}
	m.shortfallUnits.Add(float64(units))
}

// IncBackorderOpened increments the opened-backorder counter.
func (m *ProcurementMetrics) IncBackorderOpened() {
	if m == nil || m.backordersOpened == nil {
		return
	}
	m.backordersOpened.Inc()
}

// IncBackorderCompleted increments the completed-backorder counter.
func (m *ProcurementMetrics) IncBackorderCompleted() {
	if m == nil || m.backordersCompleted == nil {
		return
	}
	m.backordersCompleted.Inc()
}

// IncShipmentRecorded increments the shipment counter with the completeness label.
func (m *ProcurementMetrics) IncShipmentRecorded(completeness string) {
	if m == nil || m.shipmentsRecorded == nil {
		return
	}
	m.shipmentsRecorded.WithLabelValues(normalizeLabel(completeness)).Inc()
}

// ObserveReservationDuration records how long a reservation transaction took.
func (m *ProcurementMetrics) ObserveReservationDuration(d time.Duration) {
	if m == nil || m.reservationDuration == nil {
		return
	}
	m.reservationDuration.Observe(d.Seconds())
}

// IncOutboxPublishSuccess increments the successful publish counter.
func (m *ProcurementMetrics) IncOutboxPublishSuccess() {
	if m == nil || m.outboxPublishSuccess == nil {
		return
	}
	m.outboxPublishSuccess.Inc()
}

// IncOutboxPublishFailure increments the failed publish counter.
func (m *ProcurementMetrics) IncOutboxPublishFailure() {
	if m == nil || m.outboxPublishFailure == nil {
		return
	}
	m.outboxPublishFailure.Inc()
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
