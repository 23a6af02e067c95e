package status

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fortiblox/regsort/pkg/search"
)

const namespace = "regsort"

// collector exposes a driver snapshot as Prometheus metrics. It reads the
// snapshot on every scrape so nothing is registered per update.
type collector struct {
	provider SnapshotProvider

	counters []counterDesc
	gauges   []gaugeDesc
	outcome  *prometheus.Desc
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(search.Snapshot) uint64
}

type gaugeDesc struct {
	desc  *prometheus.Desc
	value func(search.Snapshot) float64
}

func newCollector(p SnapshotProvider) *collector {
	counter := func(name, help string, v func(search.Snapshot) uint64) counterDesc {
		return counterDesc{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "search", name+"_total"), help, nil, nil),
			value: v,
		}
	}
	gauge := func(name, help string, v func(search.Snapshot) float64) gaugeDesc {
		return gaugeDesc{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "search", name), help, nil, nil),
			value: v,
		}
	}
	return &collector{
		provider: p,
		counters: []counterDesc{
			counter("visited", "Entries popped from the frontier.", func(s search.Snapshot) uint64 { return s.Stats.Visited }),
			counter("expanded", "Entries whose successors were generated.", func(s search.Snapshot) uint64 { return s.Stats.Expanded }),
			counter("generated", "Successor states computed.", func(s search.Snapshot) uint64 { return s.Stats.Generated }),
			counter("unviable", "Successors that lost a rank.", func(s search.Snapshot) uint64 { return s.Stats.Unviable }),
			counter("cut", "Successors pruned by a cutoff.", func(s search.Snapshot) uint64 { return s.Stats.Cut }),
			counter("duplicate", "Successors rejected by the visited store.", func(s search.Snapshot) uint64 { return s.Stats.Duplicate }),
			counter("stale", "Popped entries superseded by a shorter path.", func(s search.Snapshot) uint64 { return s.Stats.Stale }),
			counter("bounded", "Entries at the length bound.", func(s search.Snapshot) uint64 { return s.Stats.Bounded }),
			counter("solutions", "Solutions emitted.", func(s search.Snapshot) uint64 { return s.Stats.Solutions }),
		},
		gauges: []gaugeDesc{
			gauge("open", "Current frontier size.", func(s search.Snapshot) float64 { return float64(s.Stats.Open) }),
			gauge("max_open", "Largest frontier size seen.", func(s search.Snapshot) float64 { return float64(s.Stats.MaxOpen) }),
			gauge("length", "Program length of the last popped entry.", func(s search.Snapshot) float64 { return float64(s.Stats.Length) }),
			gauge("best_length", "Length of the best solution, 0 before the first.", func(s search.Snapshot) float64 { return float64(s.BestLength) }),
			gauge("max_length", "Configured length bound.", func(s search.Snapshot) float64 { return float64(s.MaxLength) }),
			gauge("store_entries", "Keys held by the visited store.", func(s search.Snapshot) float64 { return float64(s.StoreSize) }),
			gauge("elapsed_seconds", "Time since Run started.", func(s search.Snapshot) float64 { return s.Stats.Elapsed.Seconds() }),
		},
		outcome: prometheus.NewDesc(prometheus.BuildFQName(namespace, "search", "outcome"),
			"Driver state, 1 for the current outcome.", []string{"outcome"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.counters {
		ch <- m.desc
	}
	for _, m := range c.gauges {
		ch <- m.desc
	}
	ch <- c.outcome
}

// Collect implements prometheus.Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.provider.Snapshot()
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.value(snap)))
	}
	for _, m := range c.gauges {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.GaugeValue, m.value(snap))
	}
	for o := search.Idle; o <= search.Aborted; o++ {
		v := 0.0
		if o == snap.Outcome {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.outcome, prometheus.GaugeValue, v, o.String())
	}
}
