package monitor

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OCAP2/tactical/internal/simulation"
)

// Collector exposes the simulation status as Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Tick            prometheus.Gauge
	Entities        prometheus.Gauge
	Alive           *prometheus.GaugeVec
	PendingCommands prometheus.Gauge
	DroppedCommands prometheus.Gauge
	Events          prometheus.Gauge
	Kills           prometheus.Gauge
	StepDuration    prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Tick, "tactical_tick", "Last simulation tick stepped."},
		{&c.Entities, "tactical_entities", "Entities spawned in the current battle."},
		{&c.PendingCommands, "tactical_pending_commands", "Commands waiting for the next tick."},
		{&c.DroppedCommands, "tactical_dropped_commands", "Commands dropped because the inbox was full."},
		{&c.Events, "tactical_events", "Events produced in the current battle."},
		{&c.Kills, "tactical_kills", "Entities killed in the current battle."},
	}
	for _, g := range gauges {
		*g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
	}

	c.Alive, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tactical_alive",
		Help: "Live entities per side.",
	}, []string{"side"}), "tactical_alive")
	if err != nil {
		return nil, err
	}

	c.StepDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tactical_step_duration_seconds",
		Help:    "Wall time spent in one simulation step.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "tactical_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Observe copies st into the metrics.
func (c *Collector) Observe(st simulation.Status) {
	if c == nil {
		return
	}
	c.Tick.Set(float64(st.Tick))
	c.Entities.Set(float64(st.Entities))
	c.PendingCommands.Set(float64(st.Pending))
	c.DroppedCommands.Set(float64(st.Dropped))
	c.Events.Set(float64(st.Events))
	c.Kills.Set(float64(st.Kills))
	c.StepDuration.Observe(st.LastStep.Seconds())
	for side, n := range st.Alive {
		c.Alive.WithLabelValues(side.String()).Set(float64(n))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
