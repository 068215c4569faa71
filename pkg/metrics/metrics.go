// Package metrics defines the Prometheus collectors for the premium lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "premium"

// Metric is a definition for the name, description, type and labels of
// each collector
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates a prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "gauge":
		metric = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	}
	return metric
}

var codesGenerated = &Metric{
	ID:          "codesGenerated",
	Name:        "codes_generated_total",
	Description: "Redemption codes generated.",
	Type:        "counter",
}

var redemptions = &Metric{
	ID:          "redemptions",
	Name:        "redemptions_total",
	Description: "Redemption attempts, partitioned by result.",
	Type:        "counter_vec",
	Args:        []string{"result"},
}

var roleOperations = &Metric{
	ID:          "roleOperations",
	Name:        "role_operations_total",
	Description: "VIP role grants and removals, partitioned by operation and result.",
	Type:        "counter_vec",
	Args:        []string{"op", "result"},
}

var sweepRuns = &Metric{
	ID:          "sweepRuns",
	Name:        "sweep_runs_total",
	Description: "Expiry sweep cycles, partitioned by outcome.",
	Type:        "counter_vec",
	Args:        []string{"outcome"},
}

var sweepActions = &Metric{
	ID:          "sweepActions",
	Name:        "sweep_actions_total",
	Description: "Expiry transitions fired by the sweep.",
	Type:        "counter_vec",
	Args:        []string{"action"},
}

var readyBots = &Metric{
	ID:          "readyBots",
	Name:        "ready_bots",
	Description: "Bot connections currently ready.",
	Type:        "gauge",
}

var standardMetrics = []*Metric{
	codesGenerated,
	redemptions,
	roleOperations,
	sweepRuns,
	sweepActions,
	readyBots,
}

// Collectors used by the rest of the bot
var (
	CodesGenerated prometheus.Counter
	Redemptions    *prometheus.CounterVec
	RoleOperations *prometheus.CounterVec
	SweepRuns      *prometheus.CounterVec
	SweepActions   *prometheus.CounterVec
	ReadyBots      prometheus.Gauge

	// Registry holds every collector above plus the Go runtime collectors
	Registry = prometheus.NewRegistry()
)

func init() {
	for _, m := range standardMetrics {
		m.MetricCollector = NewMetric(m, subsystem)
		Registry.MustRegister(m.MetricCollector)
	}
	Registry.MustRegister(collectors.NewGoCollector())

	CodesGenerated = codesGenerated.MetricCollector.(prometheus.Counter)
	Redemptions = redemptions.MetricCollector.(*prometheus.CounterVec)
	RoleOperations = roleOperations.MetricCollector.(*prometheus.CounterVec)
	SweepRuns = sweepRuns.MetricCollector.(*prometheus.CounterVec)
	SweepActions = sweepActions.MetricCollector.(*prometheus.CounterVec)
	ReadyBots = readyBots.MetricCollector.(prometheus.Gauge)
}

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Handler exposes the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
