package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports vectable metrics through client_golang.
type Prometheus struct {
	opLatency *prometheus.HistogramVec
	rows      *prometheus.CounterVec
	indexes   *prometheus.CounterVec
	fragments *prometheus.CounterVec
	cleaned   prometheus.Counter
	requests  *prometheus.CounterVec
}

// NewPrometheus creates a collector and registers it with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vectable_operation_latency_seconds",
			Help:    "Latency of table operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vectable_rows_written_total",
			Help: "Rows written by kind of change",
		}, []string{"change"}),
		indexes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vectable_indexes_created_total",
			Help: "Indexes created by type",
		}, []string{"index_type", "status"}),
		fragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vectable_compacted_fragments_total",
			Help: "Fragments removed and added by compaction",
		}, []string{"direction"}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectable_cleanup_bytes_removed_total",
			Help: "Bytes removed by cleanup",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vectable_remote_requests_total",
			Help: "Remote requests by method and status code",
		}, []string{"method", "code"}),
	}

	for _, c := range []prometheus.Collector{p.opLatency, p.rows, p.indexes, p.fragments, p.cleaned, p.requests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (p *Prometheus) observe(op string, d time.Duration, err error) {
	p.opLatency.WithLabelValues(op, status(err)).Observe(d.Seconds())
}

// RecordAdd implements Collector.
func (p *Prometheus) RecordAdd(rows int64, d time.Duration, err error) {
	p.observe("add", d, err)
	if err == nil {
		p.rows.WithLabelValues("insert").Add(float64(rows))
	}
}

// RecordMergeInsert implements Collector.
func (p *Prometheus) RecordMergeInsert(inserted, updated, deleted int64, d time.Duration, err error) {
	p.observe("merge_insert", d, err)
	if err != nil {
		return
	}
	p.rows.WithLabelValues("insert").Add(float64(inserted))
	p.rows.WithLabelValues("update").Add(float64(updated))
	p.rows.WithLabelValues("delete").Add(float64(deleted))
}

// RecordDelete implements Collector.
func (p *Prometheus) RecordDelete(rows int64, d time.Duration, err error) {
	p.observe("delete", d, err)
	if err == nil {
		p.rows.WithLabelValues("delete").Add(float64(rows))
	}
}

// RecordSearch implements Collector.
func (p *Prometheus) RecordSearch(kind string, _ int, d time.Duration, err error) {
	p.observe("search_"+kind, d, err)
}

// RecordCreateIndex implements Collector.
func (p *Prometheus) RecordCreateIndex(indexType string, d time.Duration, err error) {
	p.observe("create_index", d, err)
	p.indexes.WithLabelValues(indexType, status(err)).Inc()
}

// RecordCompaction implements Collector.
func (p *Prometheus) RecordCompaction(removed, added int, d time.Duration, err error) {
	p.observe("compact", d, err)
	p.fragments.WithLabelValues("removed").Add(float64(removed))
	p.fragments.WithLabelValues("added").Add(float64(added))
}

// RecordCleanup implements Collector.
func (p *Prometheus) RecordCleanup(bytesRemoved int64, d time.Duration, err error) {
	p.observe("cleanup", d, err)
	p.cleaned.Add(float64(bytesRemoved))
}

// RecordRequest implements Collector.
func (p *Prometheus) RecordRequest(method string, code int, d time.Duration, err error) {
	p.observe("request", d, err)
	p.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
