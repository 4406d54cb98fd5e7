package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters for the tour booking engine.
type EngineMetrics struct {
	transitionsTotal     *prometheus.CounterVec
	provisionFallbacks   *prometheus.CounterVec
	remindersDispatched  prometheus.Counter
	reminderFailures     prometheus.Counter
	remindersMissed      prometheus.Counter
	notificationFailures *prometheus.CounterVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourengine",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Total booking lifecycle transitions",
		}, []string{"transition"}),
		provisionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourengine",
			Subsystem: "meeting",
			Name:      "provision_fallback_total",
			Help:      "Meeting link provisioning calls that degraded to a placeholder",
		}, []string{"platform"}),
		remindersDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tourengine",
			Subsystem: "reminder",
			Name:      "dispatched_total",
			Help:      "Total tour reminders dispatched",
		}),
		reminderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tourengine",
			Subsystem: "reminder",
			Name:      "dispatch_failures_total",
			Help:      "Reminder dispatches that failed and will be retried",
		}),
		remindersMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tourengine",
			Subsystem: "reminder",
			Name:      "missed_total",
			Help:      "Bookings that left the lookahead band without a successful reminder",
		}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourengine",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notification dispatches that failed",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.transitionsTotal,
		m.provisionFallbacks,
		m.remindersDispatched,
		m.reminderFailures,
		m.remindersMissed,
		m.notificationFailures,
	)
	return m
}

func (m *EngineMetrics) ObserveTransition(transition string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(transition).Inc()
}

func (m *EngineMetrics) ObserveProvisionFallback(platform string) {
	if m == nil {
		return
	}
	m.provisionFallbacks.WithLabelValues(platform).Inc()
}

func (m *EngineMetrics) ObserveReminderDispatched() {
	if m == nil {
		return
	}
	m.remindersDispatched.Inc()
}

func (m *EngineMetrics) ObserveReminderFailure() {
	if m == nil {
		return
	}
	m.reminderFailures.Inc()
}

func (m *EngineMetrics) ObserveRemindersMissed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.remindersMissed.Add(float64(count))
}

func (m *EngineMetrics) ObserveNotificationFailure(event string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(event).Inc()
}
