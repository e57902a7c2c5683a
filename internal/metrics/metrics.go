package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "larder"

// Collector groups the counters emitted by the costing engine. A nil *Collector is valid and
// records nothing, so components can be built without metrics in tests.
type Collector struct {
	conversions      *prometheus.CounterVec
	catalogRetries   *prometheus.CounterVec
	staleResolutions prometheus.Counter
	cycleRejections  prometheus.Counter
	submissions      *prometheus.CounterVec
}

// New creates the collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "lookups_total",
			Help:      "Conversion factor lookups by result (hit, miss, identity, not_found, error).",
		}, []string{"result"}),
		catalogRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "retries_total",
			Help:      "Catalog calls retried after a transient failure, by operation.",
		}, []string{"operation"}),
		staleResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "editor",
			Name:      "stale_resolutions_total",
			Help:      "Conversion results discarded because the line was edited again.",
		}),
		cycleRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "editor",
			Name:      "cycle_rejections_total",
			Help:      "Preparation selections rejected because they would create a cycle.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "editor",
			Name:      "submissions_total",
			Help:      "Composite submissions by result (ok, invalid, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(c.conversions, c.catalogRetries, c.staleResolutions, c.cycleRejections, c.submissions)
	}
	return c
}

func (c *Collector) ConversionLookup(result string) {
	if c == nil {
		return
	}
	c.conversions.WithLabelValues(result).Inc()
}

func (c *Collector) CatalogRetry(operation string) {
	if c == nil {
		return
	}
	c.catalogRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) StaleResolution() {
	if c == nil {
		return
	}
	c.staleResolutions.Inc()
}

func (c *Collector) CycleRejected() {
	if c == nil {
		return
	}
	c.cycleRejections.Inc()
}

func (c *Collector) Submission(result string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(result).Inc()
}
