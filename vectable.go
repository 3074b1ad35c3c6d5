package vectable

import (
	"context"
	"errors"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/blobstore/badger"
	"github.com/hupe1980/vectable/blobstore/minio"
	"github.com/hupe1980/vectable/blobstore/s3"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/cache"
	"github.com/hupe1980/vectable/internal/engine"
	"github.com/hupe1980/vectable/internal/resource"
	"github.com/hupe1980/vectable/remote"
	"github.com/hupe1980/vectable/table"
)

// Table is a versioned collection of rows sharing one schema.
type Table = table.Table

// Query selects rows from a table.
type Query = table.Query

// WriteMode controls how rows are written into a table.
type WriteMode = table.WriteMode

// Write modes.
const (
	ModeCreate    = table.ModeCreate
	ModeAppend    = table.ModeAppend
	ModeOverwrite = table.ModeOverwrite
)

// Maintenance options and results.
type (
	CompactionOptions = table.CompactionOptions
	CompactionStats   = table.CompactionStats
	CleanupStats      = table.CleanupStats
	VersionInfo       = table.VersionInfo
)

// DefaultCleanupAge is the customary age passed to CleanupOlderThan.
const DefaultCleanupAge = table.DefaultCleanupAge

// DefaultCompactionOptions returns the default compaction options.
func DefaultCompactionOptions() CompactionOptions {
	return table.DefaultCompactionOptions()
}

// Connection is an open database.
type Connection struct {
	table.Connection
	uri     string
	closers []func() error
}

// URI returns the URI the connection was opened with.
func (c *Connection) URI() string { return c.uri }

// Close closes the database and the store it owns.
func (c *Connection) Close() error {
	err := c.Connection.Close()
	for _, fn := range c.closers {
		err = errors.Join(err, fn())
	}
	c.closers = nil
	return err
}

// Connect opens the database at uri:
//
//	./data, file:///data      local directory
//	memory://                 in-process, lost on exit
//	s3://bucket/prefix        Amazon S3
//	minio://host:port/bucket  MinIO or another S3-compatible service
//	badger:///data, badger:// embedded badger store, on disk or in memory
//	db://name                 remote database over the REST API
func Connect(ctx context.Context, uri string, optFns ...Option) (*Connection, error) {
	o := applyOptions(optFns)

	scheme, u := "", (*url.URL)(nil)
	if parsed, err := url.Parse(uri); err == nil && len(parsed.Scheme) > 1 {
		scheme, u = parsed.Scheme, parsed
	}

	if scheme == "db" {
		return connectRemote(uri, o)
	}

	conn := &Connection{uri: uri}
	var (
		store blobstore.Store
		root  string
	)
	switch scheme {
	case "":
		local, err := blobstore.NewLocalStore(uri)
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "open %s", uri)
		}
		store = local
	case "file":
		local, err := blobstore.NewLocalStore(u.Path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "open %s", uri)
		}
		store = local
	case "memory":
		store = blobstore.NewMemoryStore()
		root = u.Host + u.Path
	case "s3":
		s, err := openS3(ctx, u, o)
		if err != nil {
			return nil, err
		}
		store = s
	case "minio":
		s, err := openMinio(u, o)
		if err != nil {
			return nil, err
		}
		store = s
	case "badger":
		dir := u.Host + u.Path
		s, err := badger.Open(badger.Options{Dir: dir, InMemory: dir == "", Logger: o.logger})
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "open %s", uri)
		}
		store = s
		conn.closers = append(conn.closers, s.Close)
	default:
		return nil, errs.InvalidInput("unsupported URI scheme %q", scheme)
	}

	var rc *resource.Controller
	if o.resources != nil {
		rc = resource.NewController(*o.resources)
	}
	if o.blobCacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cache.NewLRU(o.blobCacheBytes, rc))
	}

	engineOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithMetricsCollector(o.metrics),
		engine.WithResourceController(rc),
	}
	if o.compression != nil {
		engineOpts = append(engineOpts, engine.WithCompression(*o.compression))
	}
	if o.maxCommitRetries > 0 {
		engineOpts = append(engineOpts, engine.WithMaxCommitRetries(o.maxCommitRetries))
	}
	conn.Connection = engine.Open(store, root, engineOpts...)
	return conn, nil
}

func connectRemote(uri string, o options) (*Connection, error) {
	opts := []remote.Option{
		remote.WithLogger(o.logger),
		remote.WithMetricsCollector(o.metrics),
		remote.WithHTTPClient(o.httpClient),
	}
	if o.hostOverride != "" {
		opts = append(opts, remote.WithHostOverride(o.hostOverride))
	}
	if o.rateLimit > 0 {
		opts = append(opts, remote.WithRateLimit(o.rateLimit, max(o.rateBurst, 1)))
	}
	opts = append(opts, o.remoteOptions...)

	conn, err := remote.Connect(uri, o.apiKey, o.region, opts...)
	if err != nil {
		return nil, err
	}
	return &Connection{Connection: conn, uri: uri}, nil
}

func openS3(ctx context.Context, u *url.URL, o options) (blobstore.Store, error) {
	if u.Host == "" {
		return nil, errs.InvalidInput("invalid S3 URI (missing bucket) '%s'", u)
	}
	cfg := o.awsConfig
	if cfg == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "load AWS configuration")
		}
		cfg = &loaded
	}

	store := s3.NewStore(awss3.NewFromConfig(*cfg), u.Host, strings.Trim(u.Path, "/"))
	if o.ddbTable == "" {
		return store, nil
	}
	return s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(*cfg), o.ddbTable), nil
}

func openMinio(u *url.URL, o options) (blobstore.Store, error) {
	bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || bucket == "" {
		return nil, errs.InvalidInput("invalid MinIO URI (want minio://host:port/bucket/prefix) '%s'", u)
	}
	creds := o.minio
	if creds == nil {
		creds = &minioCredentials{}
	}
	client, err := miniogo.New(u.Host, &miniogo.Options{
		Creds:  credentials.NewStaticV4(creds.accessKey, creds.secretKey, ""),
		Secure: creds.secure,
		Region: o.region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidInput, err, "create MinIO client for %s", u.Host)
	}
	return minio.NewStore(client, bucket, prefix), nil
}
