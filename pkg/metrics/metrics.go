package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	vminfo = "vminfo"

	// Run metrics
	vmsTotal              = "vms_total"
	unmatchedVms          = "unmatched_vms"
	lastRunTimestamp      = "last_run_timestamp_seconds"
	metricQueriesTotal    = "metric_queries_total"
	metricQueryDurationS  = "metric_query_duration_seconds"
	propertyPagesFetched  = "property_pages_total"
	MetricQueryResultOK   = "ok"
	MetricQueryResultFail = "error"
	MetricQueryResultNone = "empty"

	// Labels
	statusLabel  = "status"
	reasonLabel  = "reason"
	counterLabel = "counter"
	resultLabel  = "result"
)

var vmsTotalLabels = []string{
	statusLabel,
	reasonLabel,
}

var metricQueriesLabels = []string{
	counterLabel,
	resultLabel,
}

/**
* Metrics definition
**/
var vmsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: vminfo,
		Name:      vmsTotal,
		Help:      "number of vms summarized, partitioned by status and unreachable reason",
	},
	vmsTotalLabels,
)

var unmatchedVmsMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: vminfo,
		Name:      unmatchedVms,
		Help:      "number of vms found by the inventory walk but missing from the property fetch",
	},
)

var lastRunTimestampMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: vminfo,
		Name:      lastRunTimestamp,
		Help:      "unix time of the last completed report run",
	},
)

var metricQueriesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: vminfo,
		Name:      metricQueriesTotal,
		Help:      "number of performance queries, partitioned by counter and result",
	},
	metricQueriesLabels,
)

var metricQueryDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: vminfo,
		Name:      metricQueryDurationS,
		Help:      "latency of performance queries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{counterLabel},
)

var propertyPagesMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: vminfo,
		Name:      propertyPagesFetched,
		Help:      "number of property collector pages fetched",
	},
)

func IncreaseVmsTotalMetric(status, reason string) {
	labels := prometheus.Labels{
		statusLabel: status,
		reasonLabel: reason,
	}
	vmsTotalMetric.With(labels).Inc()
}

func UpdateUnmatchedVmsMetric(count int) {
	unmatchedVmsMetric.Set(float64(count))
}

func UpdateLastRunTimestampMetric(t time.Time) {
	lastRunTimestampMetric.Set(float64(t.Unix()))
}

func ObserveMetricQuery(counter, result string, elapsed time.Duration) {
	labels := prometheus.Labels{
		counterLabel: counter,
		resultLabel:  result,
	}
	metricQueriesTotalMetric.With(labels).Inc()
	metricQueryDurationMetric.With(prometheus.Labels{counterLabel: counter}).Observe(elapsed.Seconds())
}

func IncreasePropertyPagesMetric() {
	propertyPagesMetric.Inc()
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(vmsTotalMetric)
	prometheus.MustRegister(unmatchedVmsMetric)
	prometheus.MustRegister(lastRunTimestampMetric)
	prometheus.MustRegister(metricQueriesTotalMetric)
	prometheus.MustRegister(metricQueryDurationMetric)
	prometheus.MustRegister(propertyPagesMetric)
}
