package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the scheduling engine.
type BookingMetrics struct {
	attemptsTotal  *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentsi",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentsi",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Conflicts detected at commit time",
		}, []string{"stage"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentsi",
			Subsystem: "booking",
			Name:      "slot_search_seconds",
			Help:      "Latency of availability searches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"urgency"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.conflictsTotal, m.searchLatency)
	return m
}

func (m *BookingMetrics) ObserveAttempt(operation, outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveConflict(stage string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(stage).Inc()
}

func (m *BookingMetrics) ObserveSearchLatency(urgency string, seconds float64) {
	if m == nil {
		return
	}
	m.searchLatency.WithLabelValues(urgency).Observe(seconds)
}

// CallMetrics exposes counters/histograms for the conversation loop.
type CallMetrics struct {
	turnsTotal       *prometheus.CounterVec
	toolsTotal       *prometheus.CounterVec
	loopExhausted    prometheus.Counter
	escalationsTotal *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
}

func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentsi",
			Subsystem: "calls",
			Name:      "turns_total",
			Help:      "Conversation turns by outcome",
		}, []string{"outcome"}),
		toolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentsi",
			Subsystem: "calls",
			Name:      "tool_executions_total",
			Help:      "Tool executions by tool name and status",
		}, []string{"tool", "status"}),
		loopExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dentsi",
			Subsystem: "calls",
			Name:      "loop_exhausted_total",
			Help:      "Turns that hit the bounded-iteration limit",
		}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentsi",
			Subsystem: "calls",
			Name:      "escalations_total",
			Help:      "Escalations raised during calls",
		}, []string{"reason"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentsi",
			Subsystem: "calls",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.toolsTotal, m.loopExhausted, m.escalationsTotal, m.turnLatency)
	return m
}

func (m *CallMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *CallMetrics) ObserveTool(tool, status string) {
	if m == nil {
		return
	}
	m.toolsTotal.WithLabelValues(tool, status).Inc()
}

func (m *CallMetrics) ObserveLoopExhausted() {
	if m == nil {
		return
	}
	m.loopExhausted.Inc()
}

func (m *CallMetrics) ObserveEscalation(reason string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(reason).Inc()
}

func (m *CallMetrics) ObserveTurnLatency(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(phase).Observe(seconds)
}
