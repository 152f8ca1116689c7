package targetchain

import (
	"sync"

	"github.com/bsv-blockchain/chainstate/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusTargetChainRecompute      prometheus.Histogram
	prometheusTargetChainRescans        prometheus.Counter
	prometheusTargetChainPoisoned       prometheus.Counter
	prometheusTargetChainChanged        prometheus.Counter
	prometheusTargetChainHeight         prometheus.Gauge
	prometheusTargetBlockChanged        prometheus.Counter
	prometheusTargetChainKafkaPublished prometheus.Counter
	prometheusTargetChainKafkaErrors    prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusTargetChainRecompute = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "recompute",
			Help:      "Duration of target chain recomputations",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusTargetChainRescans = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "rescans",
			Help:      "Number of target chain recomputations started from genesis",
		},
	)

	prometheusTargetChainPoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "poisoned_blocks",
			Help:      "Number of blocks marked invalid because they descend from an invalid block",
		},
	)

	prometheusTargetChainChanged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "changed",
			Help:      "Number of published target chain tip changes",
		},
	)

	prometheusTargetChainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "height",
			Help:      "Height of the published target chain",
		},
	)

	prometheusTargetBlockChanged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "targetblock",
			Name:      "changed",
			Help:      "Number of target block changes",
		},
	)

	prometheusTargetChainKafkaPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "kafka_published",
			Help:      "Number of target chain messages sent to Kafka",
		},
	)

	prometheusTargetChainKafkaErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainstate",
			Subsystem: "targetchain",
			Name:      "kafka_errors",
			Help:      "Number of target chain messages that failed to send",
		},
	)
}
