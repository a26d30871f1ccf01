package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "bitquery_requests_total",
			Help:      "Total number of Bitquery GraphQL requests",
		},
		[]string{"network", "operation"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dexapi",
			Name:      "bitquery_latency_seconds",
			Help:      "Bitquery request latency in seconds, normalization included",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"network", "operation"},
	)

	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "bitquery_errors_total",
			Help:      "Total number of failed Bitquery requests by error kind",
		},
		[]string{"network", "operation", "kind"},
	)

	RowsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "rows_normalized_total",
			Help:      "Total number of flat rows produced from Bitquery responses",
		},
		[]string{"network", "operation"},
	)

	PairDuplicatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "pair_duplicates_dropped_total",
			Help:      "Total number of pair rows dropped as duplicate smart contracts",
		},
		[]string{"network"},
	)

	KafkaProduceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dexapi",
			Name:      "kafka_produce_latency_seconds",
			Help:      "Kafka produce latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"topic"},
	)

	KafkaMessagesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "kafka_messages_produced_total",
			Help:      "Total number of Kafka messages produced",
		},
		[]string{"topic"},
	)

	KafkaProduceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "kafka_produce_errors_total",
			Help:      "Total number of Kafka produce errors",
		},
		[]string{"topic"},
	)

	TradesSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "trades_synced_total",
			Help:      "Total number of trades pushed downstream by the sync service",
		},
		[]string{"network", "contract"},
	)

	LastSyncedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dexapi",
			Name:      "last_synced_block",
			Help:      "Highest block synced per contract",
		},
		[]string{"network", "contract"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dexapi",
			Name:      "sync_duration_seconds",
			Help:      "Time spent syncing one contract",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"network"},
	)

	CheckpointUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "checkpoint_updates_total",
			Help:      "Total number of checkpoint updates",
		},
		[]string{"network"},
	)

	ClickHouseRowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dexapi",
			Name:      "clickhouse_rows_inserted_total",
			Help:      "Total number of rows written to ClickHouse",
		},
		[]string{"table"},
	)
)
