package triage

import "github.com/prometheus/client_golang/prometheus"

// AssessedEvent describes one successful classification.
type AssessedEvent struct {
	Urgency    Urgency
	Confidence float64
	Source     Source
	Duration   float64
}

// Hooks are optional callbacks the Service fires as it works. Nil fields are skipped.
type Hooks struct {
	OnAssessed func(e *AssessedEvent)
	OnRejected func(code string)
	OnFallback func(reason string)
	OnPersist  func(ok bool)
	OnNotify   func(ok bool)
}

func (h Hooks) assessed(e *AssessedEvent) {
	if h.OnAssessed != nil {
		h.OnAssessed(e)
	}
}

func (h Hooks) rejected(code string) {
	if h.OnRejected != nil {
		h.OnRejected(code)
	}
}

func (h Hooks) fellBack(reason string) {
	if h.OnFallback != nil {
		h.OnFallback(reason)
	}
}

func (h Hooks) persisted(ok bool) {
	if h.OnPersist != nil {
		h.OnPersist(ok)
	}
}

func (h Hooks) notified(ok bool) {
	if h.OnNotify != nil {
		h.OnNotify(ok)
	}
}

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	AssessmentConf     *prometheus.HistogramVec
	AssessmentDuration *prometheus.HistogramVec
	RejectionsTotal    *prometheus.CounterVec
	FallbacksTotal     *prometheus.CounterVec
	SessionsTotal      *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careline_assessments_total",
			Help: "Total triage assessments by urgency tier and classifier source.",
		}, []string{"urgency", "source"}),
		AssessmentConf: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "careline_assessment_confidence",
			Help:    "Self-reported classifier confidence per assessment.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10), // 0.1 .. 1.0
		}, []string{"urgency"}),
		AssessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "careline_assessment_duration_seconds",
			Help:    "Time spent classifying a validated request.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us .. ~26s
		}, []string{"source"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careline_triage_rejections_total",
			Help: "Triage submissions rejected by validation, by error code.",
		}, []string{"code"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careline_classifier_fallbacks_total",
			Help: "Primary classifier answers replaced by the local engine, by reason.",
		}, []string{"reason"}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careline_triage_sessions_total",
			Help: "Triage session writes by outcome.",
		}, []string{"outcome"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careline_escalations_total",
			Help: "Emergency escalation notifications by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.AssessmentConf,
		m.AssessmentDuration,
		m.RejectionsTotal,
		m.FallbacksTotal,
		m.SessionsTotal,
		m.NotificationsTotal,
	)

	return m
}

// Hooks returns Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	outcome := func(ok bool) string {
		if ok {
			return "success"
		}
		return "error"
	}
	return Hooks{
		OnAssessed: func(e *AssessedEvent) {
			m.AssessmentsTotal.WithLabelValues(string(e.Urgency), string(e.Source)).Inc()
			m.AssessmentConf.WithLabelValues(string(e.Urgency)).Observe(e.Confidence)
			m.AssessmentDuration.WithLabelValues(string(e.Source)).Observe(e.Duration)
		},
		OnRejected: func(code string) {
			m.RejectionsTotal.WithLabelValues(code).Inc()
		},
		OnFallback: func(reason string) {
			m.FallbacksTotal.WithLabelValues(reason).Inc()
		},
		OnPersist: func(ok bool) {
			m.SessionsTotal.WithLabelValues(outcome(ok)).Inc()
		},
		OnNotify: func(ok bool) {
			m.NotificationsTotal.WithLabelValues(outcome(ok)).Inc()
		},
	}
}
