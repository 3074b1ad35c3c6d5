package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hupe1980/vectable/errs"
)

// Content types of request and response bodies.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeArrowStream = "application/vnd.apache.arrow.stream"
	ContentTypeArrowFile   = "application/vnd.apache.arrow.file"
)

// Request is a request under construction. Builder methods record the first
// error, which Build returns.
type Request struct {
	client      *Client
	method      string
	path        string
	query       url.Values
	header      http.Header
	body        []byte
	contentType string
	err         error
}

func (c *Client) newRequest(method, path string) *Request {
	return &Request{
		client: c,
		method: method,
		path:   path,
		query:  make(url.Values),
		header: c.headers.Clone(),
	}
}

// Query adds a query parameter.
func (r *Request) Query(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// Header sets a header.
func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// JSON encodes v as the body.
func (r *Request) JSON(v any) *Request {
	if r.err != nil {
		return r
	}
	data, err := r.client.codec.Marshal(v)
	if err != nil {
		r.err = errs.Wrap(errs.ErrInvalidInput, err, "encode body of %s", r.path)
		return r
	}
	return r.Body(ContentTypeJSON, data)
}

// Arrow encodes the batches of rows as an Arrow IPC stream body and releases
// rows.
func (r *Request) Arrow(rows array.RecordReader) *Request {
	defer rows.Release()
	if r.err != nil {
		return r
	}

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rows.Schema()), ipc.WithAllocator(memory.DefaultAllocator))
	for rows.Next() {
		if err := w.Write(rows.Record()); err != nil {
			_ = w.Close()
			r.err = errs.Wrap(errs.ErrRuntime, err, "encode rows of %s", r.path)
			return r
		}
	}
	if err := rows.Err(); err != nil {
		_ = w.Close()
		r.err = errs.Wrap(errs.ErrRuntime, err, "read rows of %s", r.path)
		return r
	}
	if err := w.Close(); err != nil {
		r.err = errs.Wrap(errs.ErrRuntime, err, "encode rows of %s", r.path)
		return r
	}
	return r.Body(ContentTypeArrowStream, buf.Bytes())
}

// Body sets a raw body.
func (r *Request) Body(contentType string, data []byte) *Request {
	r.contentType = contentType
	r.body = data
	return r
}

// Err returns the first error recorded by a builder method.
func (r *Request) Err() error { return r.err }

// Build returns the HTTP request.
func (r *Request) Build(ctx context.Context) (*http.Request, error) {
	if r.err != nil {
		return nil, r.err
	}

	u := r.client.host + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidInput, err, "build request %s %s", r.method, r.path)
	}
	req.Header = r.header.Clone()
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.client.hostName != "" {
		req.Host = r.client.hostName
	}
	return req, nil
}
