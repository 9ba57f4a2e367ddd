package manifest

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	renderBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}

	rendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manman",
		Name:      "manifest_renders_total",
		Help:      "Rendered documents by kind and outcome",
	}, []string{"kind", "status"})

	renderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "manman",
		Name:      "render_duration_seconds",
		Help:      "Time to resolve and render one document",
		Buckets:   renderBuckets,
	}, []string{"kind"})
)

func init() {
	rendersTotal = register(rendersTotal)
	renderDuration = register(renderDuration)
}

// register registers c with the default registry. If an equal collector
// is already registered, that one is returned instead.
func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func observeRender(kind string, start time.Time, err error) {
	renderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	rendersTotal.WithLabelValues(kind, KindOf(err).String()).Inc()
}
