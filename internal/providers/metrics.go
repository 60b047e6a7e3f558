package providers

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a Directory with lookup metrics.
type Instrumented struct {
	next     Directory
	lookups  *prometheus.CounterVec
	duration prometheus.Histogram
}

// Instrument registers provider lookup metrics on reg and wraps d.
func Instrument(d Directory, reg prometheus.Registerer) *Instrumented {
	in := &Instrumented{
		next: d,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careline_provider_lookups_total",
			Help: "Provider directory listings by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "careline_provider_lookup_duration_seconds",
			Help:    "Time spent listing the provider directory.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(in.lookups, in.duration)
	return in
}

// List implements Directory.
func (in *Instrumented) List(ctx context.Context) ([]Provider, error) {
	start := time.Now()
	list, err := in.next.List(ctx)
	in.duration.Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case errors.Is(err, ErrUnavailable):
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	in.lookups.WithLabelValues(outcome).Inc()
	return list, err
}
