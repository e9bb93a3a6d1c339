package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine Prometheus collectors.
type Metrics struct {
	SwapsTotal     *prometheus.CounterVec
	FeesTotal      *prometheus.CounterVec
	LiquidityTotal *prometheus.CounterVec
	HarvestsTotal  prometheus.Counter
	FeeRate        prometheus.Histogram
}

// NewMetrics builds the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SwapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spice",
				Subsystem: "engine",
				Name:      "swaps_total",
				Help:      "Total number of swaps by outcome",
			},
			[]string{"status"},
		),
		FeesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spice",
				Subsystem: "engine",
				Name:      "fees_total",
				Help:      "Swap fees charged in output asset base units",
			},
			[]string{"kind"},
		),
		LiquidityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spice",
				Subsystem: "engine",
				Name:      "liquidity_total",
				Help:      "Liquidity moved in base units",
			},
			[]string{"direction"},
		),
		HarvestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "spice",
				Subsystem: "engine",
				Name:      "harvests_total",
				Help:      "Total number of yield harvests",
			},
		),
		FeeRate: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "spice",
				Subsystem: "engine",
				Name:      "fee_rate",
				Help:      "Dynamic fee rate applied to swaps, scaled by 100000",
				Buckets:   []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.SwapsTotal, m.FeesTotal, m.LiquidityTotal, m.HarvestsTotal, m.FeeRate} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}
