package chainstate

import (
	"sync"

	"github.com/bsv-blockchain/chainstate/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusChainStateAddBlock           prometheus.Histogram
	prometheusChainStateRollbackBlock      prometheus.Histogram
	prometheusChainStateBlockTxs           prometheus.Histogram
	prometheusChainStateValidationFailures prometheus.Counter
	prometheusChainStateUnspentTxs         prometheus.Gauge
	prometheusChainStateUnspentOutputs     prometheus.Gauge
	prometheusChainStateHeight             prometheus.Gauge
	prometheusChainStateWorkerCycles       prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusChainStateAddBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "add_block",
			Help:      "Duration of applying a block to the chain state",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusChainStateRollbackBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "rollback_block",
			Help:      "Duration of rolling a block back from the chain state",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusChainStateBlockTxs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "block_txs",
			Help:      "Number of transactions per applied block",
			Buckets:   util.MetricsBucketsCount,
		},
	)

	prometheusChainStateValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "validation_failures",
			Help:      "Number of blocks rejected by the utxo engine",
		},
	)

	prometheusChainStateUnspentTxs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "unspent_txs",
			Help:      "Number of transactions with at least one unspent output",
		},
	)

	prometheusChainStateUnspentOutputs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "unspent_outputs",
			Help:      "Number of unspent outputs",
		},
	)

	prometheusChainStateHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainstate",
			Subsystem: "chainstate",
			Name:      "height",
			Help:      "Height of the chain state tip",
		},
	)

	prometheusChainStateWorkerCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "worker",
			Name:      "cycles",
			Help:      "Number of chain state worker cycles",
		},
	)
}
