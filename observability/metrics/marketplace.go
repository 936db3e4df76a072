package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MarketplaceMetrics aggregates the settlement engine's operational
// counters.
type MarketplaceMetrics struct {
	Operations    *prometheus.CounterVec
	SettledSales  prometheus.Counter
	SettledVolume prometheus.Counter
	RPCDuration   *prometheus.HistogramVec
}

var (
	marketplaceOnce sync.Once
	marketplaceInst *MarketplaceMetrics
)

// Marketplace returns the process-wide metrics set, registering it on first
// use.
func Marketplace() *MarketplaceMetrics {
	marketplaceOnce.Do(func() {
		marketplaceInst = &MarketplaceMetrics{
			Operations: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "m2",
				Subsystem: "marketplace",
				Name:      "operations_total",
				Help:      "Engine operations by name and outcome.",
			}, []string{"op", "outcome"}),
			SettledSales: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "m2",
				Subsystem: "marketplace",
				Name:      "settled_sales_total",
				Help:      "Completed settlements.",
			}),
			SettledVolume: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "m2",
				Subsystem: "marketplace",
				Name:      "settled_volume_native",
				Help:      "Native-unit volume across completed settlements.",
			}),
			RPCDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "m2",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "JSON-RPC request latency by method.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
	})
	return marketplaceInst
}

// ObserveOperation counts one engine operation and its outcome.
func (m *MarketplaceMetrics) ObserveOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
}

// ObserveSale counts one settlement and its price.
func (m *MarketplaceMetrics) ObserveSale(price *big.Int) {
	m.SettledSales.Inc()
	if price != nil {
		f, _ := new(big.Float).SetInt(price).Float64()
		m.SettledVolume.Add(f)
	}
}
