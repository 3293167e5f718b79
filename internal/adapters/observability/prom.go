package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/busbeacon/beacon/internal/ports"
)

// Metric names shared by the relay and the clients.
const (
	MetricConnections        = "beacon_connections"
	MetricBusesActive        = "beacon_buses_active"
	MetricPublishes          = "beacon_publishes_total"
	MetricSessionPubFailures = "beacon_session_publish_failures_total"
	MetricStorePubFailures   = "beacon_store_publish_failures_total"
	MetricCrossheals         = "beacon_crossheal_total"
	MetricCrosshealFailures  = "beacon_crossheal_failures_total"
	MetricDegradedFallbacks  = "beacon_degraded_fallbacks_total"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewPromObs registers the beacon metric set on the given registerer
// (defaulting to prometheus.DefaultRegisterer when nil).
func NewPromObs(reg prometheus.Registerer) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricConnections,
		Help: "Current number of websocket connections attached to the relay.",
	})
	busesActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricBusesActive,
		Help: "Number of buses with at least one attached connection.",
	})
	publishes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricPublishes,
		Help: "Location samples published by driver clients.",
	})
	sessionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSessionPubFailures,
		Help: "Publishes where the replicated-session sink failed.",
	})
	storeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricStorePubFailures,
		Help: "Publishes where the durable-store sink failed.",
	})
	crossheals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricCrossheals,
		Help: "Durable-store updates mirrored back into a session.",
	})
	crosshealFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricCrosshealFailures,
		Help: "Cross-heal writes into a session that failed.",
	})
	degraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricDegradedFallbacks,
		Help: "Subscriptions that fell back to durable-store-only mode.",
	})

	reg.MustRegister(connections, busesActive, publishes, sessionFailures,
		storeFailures, crossheals, crosshealFailures, degraded)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			MetricPublishes:          publishes,
			MetricSessionPubFailures: sessionFailures,
			MetricStorePubFailures:   storeFailures,
			MetricCrossheals:         crossheals,
			MetricCrosshealFailures:  crosshealFailures,
			MetricDegradedFallbacks:  degraded,
		},
		gauges: map[string]prometheus.Gauge{
			MetricConnections: connections,
			MetricBusesActive: busesActive,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ ports.Observability = (*PromObs)(nil)
