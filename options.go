package vectable

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/time/rate"

	"github.com/hupe1980/vectable/internal/compress"
	"github.com/hupe1980/vectable/internal/resource"
	"github.com/hupe1980/vectable/remote"
)

// Environment variables read when the matching option is not given. The
// VECTABLE_ variants take precedence.
const (
	EnvAPIKey       = "VECTABLE_API_KEY"
	EnvRegion       = "VECTABLE_REGION"
	EnvLanceAPIKey  = "LANCEDB_API_KEY"
	EnvLanceRegion  = "LANCEDB_REGION"
	EnvHostOverride = "VECTABLE_HOST_OVERRIDE"
)

// Compression selects the codec of fragment files and manifests.
type Compression = compress.Codec

// Compression codecs.
const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ResourceConfig bounds memory, rewrite workers and compaction IO.
type ResourceConfig = resource.Config

type minioCredentials struct {
	accessKey string
	secretKey string
	secure    bool
}

type options struct {
	apiKey           string
	region           string
	hostOverride     string
	logger           *Logger
	metrics          MetricsCollector
	compression      *Compression
	resources        *ResourceConfig
	blobCacheBytes   int64
	maxCommitRetries int
	ddbTable         string
	awsConfig        *aws.Config
	minio            *minioCredentials
	httpClient       *http.Client
	rateLimit        rate.Limit
	rateBurst        int
	remoteOptions    []remote.Option
}

// Option configures Connect.
type Option func(*options)

// WithAPIKey sets the API key of a remote database.
// Defaults to $VECTABLE_API_KEY, then $LANCEDB_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithRegion sets the region of a remote database or S3 bucket.
// Defaults to $VECTABLE_REGION, then $LANCEDB_REGION, then us-east-1 for
// remote databases.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithHostOverride sends remote requests to host instead of the hosted
// endpoint.
func WithHostOverride(host string) Option {
	return func(o *options) {
		o.hostOverride = host
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vectable.NewJSONLogger(slog.LevelInfo)
//	db, _ := vectable.Connect(ctx, "./data", vectable.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithCompression sets the codec of newly written files. Defaults to zstd.
// Existing files record their codec and stay readable.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = &c
	}
}

// WithResourceConfig bounds the memory buffered by merge inserts and the
// blob cache, the concurrent compaction workers and compaction write
// throughput.
func WithResourceConfig(cfg ResourceConfig) Option {
	return func(o *options) {
		o.resources = &cfg
	}
}

// WithBlobCache caches up to bytes of table files in memory.
func WithBlobCache(bytes int64) Option {
	return func(o *options) {
		o.blobCacheBytes = bytes
	}
}

// WithMaxCommitRetries bounds the retries of a commit that lost against a
// concurrent writer.
func WithMaxCommitRetries(n int) Option {
	return func(o *options) {
		o.maxCommitRetries = n
	}
}

// WithDynamoDBCommitTable arbitrates S3 commits through a DynamoDB table.
// Use it where S3 conditional writes are unavailable.
func WithDynamoDBCommitTable(table string) Option {
	return func(o *options) {
		o.ddbTable = table
	}
}

// WithAWSConfig sets the AWS configuration of s3:// databases. By default it
// is loaded from the environment.
func WithAWSConfig(cfg aws.Config) Option {
	return func(o *options) {
		o.awsConfig = &cfg
	}
}

// WithMinioCredentials sets the static credentials of minio:// databases.
func WithMinioCredentials(accessKey, secretKey string, secure bool) Option {
	return func(o *options) {
		o.minio = &minioCredentials{accessKey: accessKey, secretKey: secretKey, secure: secure}
	}
}

// WithHTTPClient sets the HTTP client of remote databases.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithRequestRateLimit limits remote requests to r per second.
func WithRequestRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.rateLimit = r
		o.rateBurst = burst
	}
}

// WithRemoteOptions passes options through to the remote client.
func WithRemoteOptions(opts ...remote.Option) Option {
	return func(o *options) {
		o.remoteOptions = append(o.remoteOptions, opts...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.apiKey == "" {
		o.apiKey = firstEnv(EnvAPIKey, EnvLanceAPIKey)
	}
	if o.region == "" {
		o.region = firstEnv(EnvRegion, EnvLanceRegion)
	}
	if o.hostOverride == "" {
		o.hostOverride = os.Getenv(EnvHostOverride)
	}
	return o
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
