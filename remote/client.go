package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/vectable/codec"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/logging"
	"github.com/hupe1980/vectable/metrics"
)

const (
	// DefaultRegion is the region used when none is given.
	DefaultRegion = "us-east-1"

	// DefaultTimeout bounds every request sent by HTTPSender.
	DefaultTimeout = 30 * time.Second
)

// Sender sends a fully built request.
type Sender interface {
	Send(req *http.Request) (*http.Response, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(req *http.Request) (*http.Response, error)

// Send calls f(req).
func (f SenderFunc) Send(req *http.Request) (*http.Response, error) {
	return f(req)
}

// HTTPSender sends requests with an *http.Client.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender returns a sender using client, or a client with
// DefaultTimeout if client is nil.
func NewHTTPSender(client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPSender{client: client}
}

// Send sends req.
func (s *HTTPSender) Send(req *http.Request) (*http.Response, error) {
	return s.client.Do(req)
}

type options struct {
	hostOverride string
	sender       Sender
	httpClient   *http.Client
	codec        codec.Codec
	limiter      *rate.Limiter
	logger       *logging.Logger
	metrics      metrics.Collector
}

// Option configures a Client.
type Option func(*options)

// WithHostOverride sends requests to host instead of the hosted endpoint
// derived from the database name and region. The database name is then
// passed in the x-lancedb-database header.
func WithHostOverride(host string) Option {
	return func(o *options) {
		o.hostOverride = host
	}
}

// WithSender replaces the sender. It takes precedence over WithHTTPClient.
func WithSender(s Sender) Option {
	return func(o *options) {
		o.sender = s
	}
}

// WithHTTPClient sets the client used by the default HTTPSender.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithCodec sets the codec of JSON bodies. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithRateLimit limits requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(r, burst)
	}
}

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

// Client sends requests to a remote database. It is immutable after
// construction and safe for concurrent use.
type Client struct {
	host     string
	hostName string
	dbName   string
	headers  http.Header
	sender   Sender
	codec    codec.Codec
	limiter  *rate.Limiter
	logger   *logging.Logger
	metrics  metrics.Collector
}

// NewClient returns a client for dbURL ("db://<name>").
//
// Requests go to https://<name>.<region>.api.lancedb.com unless a host
// override is given. Every request carries the x-api-key header. In region
// "local" the Host header is <name>.local.api.lancedb.com.
func NewClient(dbURL, apiKey, region string, optFns ...Option) (*Client, error) {
	opts := options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidInput, err, "invalid database URL '%s'", dbURL)
	}
	if u.Host == "" {
		return nil, errs.InvalidInput("invalid database URL (missing host) '%s'", dbURL)
	}
	if region == "" {
		region = DefaultRegion
	}
	dbName := u.Hostname()

	c := &Client{
		dbName:  dbName,
		headers: make(http.Header),
		sender:  opts.sender,
		codec:   codec.OrDefault(opts.codec),
		limiter: opts.limiter,
		logger:  logging.OrNoop(opts.logger),
		metrics: metrics.OrNoop(opts.metrics),
	}
	if c.sender == nil {
		c.sender = NewHTTPSender(opts.httpClient)
	}

	if !isHeaderValue(apiKey) {
		return nil, errs.InvalidInput("non-ascii api key provided")
	}
	c.headers.Set("x-api-key", apiKey)

	if region == "local" {
		host := fmt.Sprintf("%s.local.api.lancedb.com", dbName)
		if !isHeaderValue(host) {
			return nil, errs.InvalidInput("non-ascii database name '%s' provided", dbName)
		}
		c.hostName = host
	}

	if opts.hostOverride != "" {
		if !isHeaderValue(dbName) {
			return nil, errs.InvalidInput("non-ascii database name '%s' provided", dbName)
		}
		c.headers.Set("x-lancedb-database", dbName)
		c.host = strings.TrimRight(opts.hostOverride, "/")
	} else {
		c.host = fmt.Sprintf("https://%s.%s.api.lancedb.com", dbName, region)
	}
	return c, nil
}

// isHeaderValue reports whether s is visible ASCII, spaces or tabs.
func isHeaderValue(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

// Host returns the base URL requests are sent to.
func (c *Client) Host() string { return c.host }

// DatabaseName returns the database name of the URL.
func (c *Client) DatabaseName() string { return c.dbName }

// Get starts a GET request for path.
func (c *Client) Get(path string) *Request {
	return c.newRequest(http.MethodGet, path)
}

// Post starts a POST request for path.
func (c *Client) Post(path string) *Request {
	return c.newRequest(http.MethodPost, path)
}

// Send builds r and hands it to the sender. The response is returned as is;
// use CheckResponse to classify its status.
func (c *Client) Send(ctx context.Context, r *Request) (resp *http.Response, err error) {
	start := time.Now()
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.logger.LogRequest(ctx, r.method, r.path, status, time.Since(start), err)
		c.metrics.RecordRequest(r.method, status, time.Since(start), err)
	}()

	req, err := r.Build(ctx)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "%s %s", r.method, r.path)
		}
	}
	resp, err = c.sender.Send(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "%s %s", r.method, r.path)
	}
	return resp, nil
}

// CheckResponse classifies resp by status: 200 is success, 4xx is
// errs.ErrInvalidInput and anything else errs.ErrRuntime. The error message
// is the response body, or the status text if the body cannot be read. The
// body is closed when an error is returned.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	defer resp.Body.Close()

	msg := resp.Status
	if body, err := io.ReadAll(resp.Body); err == nil {
		msg = string(body)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return errs.New(errs.ErrInvalidInput, "%s", msg)
	}
	return errs.New(errs.ErrRuntime, "%s", msg)
}

// do sends r, checks the response and decodes a JSON body into out unless
// out is nil.
func (c *Client) do(ctx context.Context, r *Request, out any) error {
	return c.doNotFound(ctx, r, out, nil)
}

// doNotFound is do, except that a 404 response yields notFound when it is
// not nil.
func (c *Client) doNotFound(ctx context.Context, r *Request, out any, notFound error) error {
	resp, err := c.Send(ctx, r)
	if err != nil {
		return err
	}
	if notFound != nil && resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return notFound
	}
	if err := CheckResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrRuntime, err, "read response of %s", r.path)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := c.codec.Unmarshal(body, out); err != nil {
		return errs.Wrap(errs.ErrRuntime, err, "decode response of %s", r.path)
	}
	return nil
}
