package engine

import (
	"time"

	"github.com/hupe1980/vectable/internal/compress"
	"github.com/hupe1980/vectable/internal/logging"
	"github.com/hupe1980/vectable/internal/resource"
	"github.com/hupe1980/vectable/metrics"
)

// DefaultMaxCommitRetries bounds the attempts of one optimistic commit.
const DefaultMaxCommitRetries = 5

type options struct {
	logger     *logging.Logger
	metrics    metrics.Collector
	resources  *resource.Controller
	codec      compress.Codec
	maxRetries int
	now        func() time.Time
}

// Option configures a Database.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(c metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithResourceController shares a resource controller for compaction
// workers, write IO and buffered merge sources.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCompression sets the codec of new fragment and manifest files.
func WithCompression(c compress.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithMaxCommitRetries sets how often a conflicting commit is retried.
func WithMaxCommitRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithClock overrides the clock used for manifest timestamps and cleanup
// cutoffs.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{
		codec:      compress.ZSTD,
		maxRetries: DefaultMaxCommitRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNoop(o.logger)
	o.metrics = metrics.OrNoop(o.metrics)
	return o
}
