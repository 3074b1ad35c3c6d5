package vectable

import "github.com/hupe1980/vectable/metrics"

// MetricsCollector defines an interface for collecting operational metrics.
// metrics.NewPrometheus exports them to a Prometheus registry.
type MetricsCollector = metrics.Collector

// BasicMetricsCollector counts operations in memory.
//
// Example:
//
//	m := &vectable.BasicMetricsCollector{}
//	db, _ := vectable.Connect(ctx, "./data", vectable.WithMetricsCollector(m))
//	// ... use db ...
//	stats := m.Stats()
//	fmt.Printf("Adds: %d, rows: %d\n", stats.AddCount, stats.AddRows)
type BasicMetricsCollector = metrics.Basic

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector = metrics.Noop
