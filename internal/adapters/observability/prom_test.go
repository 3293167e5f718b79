package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsCountersAndGauges(t *testing.T) {
	obs := NewPromObs(prometheus.NewRegistry())

	obs.IncCounter(MetricPublishes, 1)
	obs.IncCounter(MetricPublishes, 2)
	if got := testutil.ToFloat64(obs.counters[MetricPublishes]); got != 3 {
		t.Fatalf("expected counter 3, got %f", got)
	}

	obs.SetGauge(MetricConnections, 7)
	if got := testutil.ToFloat64(obs.gauges[MetricConnections]); got != 7 {
		t.Fatalf("expected gauge 7, got %f", got)
	}

	// Unknown names are ignored, not registered on the fly.
	obs.IncCounter("beacon_not_a_metric", 1)
	obs.SetGauge("beacon_not_a_metric", 1)
}

func TestLogObsIsSafeWithoutBackend(t *testing.T) {
	obs := NewLogObs()
	obs.LogInfo("hello")
	obs.LogError("bad", nil)
	obs.IncCounter("x", 1)
	obs.SetGauge("y", 2)
}
