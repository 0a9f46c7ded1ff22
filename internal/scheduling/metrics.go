package scheduling

import (
	"github.com/prometheus/client_golang/prometheus"

	"hospital-app-server/internal/models"
)

// Metrics counts scheduling outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	windows     *prometheus.CounterVec
}

// NewMetrics creates the scheduling collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduling_appointment_requests_total",
				Help: "Appointment requests by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduling_status_transitions_total",
				Help: "Applied appointment status transitions",
			},
			[]string{"from", "to"},
		),
		windows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduling_availability_changes_total",
				Help: "Availability window changes by action",
			},
			[]string{"action"},
		),
	}
	reg.MustRegister(m.requests, m.transitions, m.windows)
	return m
}

func (m *Metrics) appointmentRequested(err error) {
	if m == nil {
		return
	}
	outcome := "created"
	if err != nil {
		outcome = string(KindOf(err))
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) statusChanged(from, to models.AppointmentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) windowChanged(action string) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(action).Inc()
}
