package remote

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/table"
)

// tablePageSize is the page size used when listing tables.
const tablePageSize = 100

// Connection is a remote database reached through a Client.
type Connection struct {
	client *Client
}

var _ table.Connection = (*Connection)(nil)

// Connect returns a connection to dbURL. See NewClient.
func Connect(dbURL, apiKey, region string, opts ...Option) (*Connection, error) {
	c, err := NewClient(dbURL, apiKey, region, opts...)
	if err != nil {
		return nil, err
	}
	return NewConnection(c), nil
}

// NewConnection returns a connection using c.
func NewConnection(c *Client) *Connection {
	return &Connection{client: c}
}

// Client returns the underlying client.
func (c *Connection) Client() *Client { return c.client }

func tablePath(name, action string) string {
	return "/v1/table/" + url.PathEscape(name) + "/" + action + "/"
}

type listTablesResponse struct {
	Tables    []string `json:"tables"`
	PageToken string   `json:"page_token,omitempty"`
}

// TableNames pages through GET /v1/table/.
func (c *Connection) TableNames(ctx context.Context) ([]string, error) {
	var (
		names []string
		token string
	)
	for {
		req := c.client.Get("/v1/table/").Query("limit", strconv.Itoa(tablePageSize))
		if token != "" {
			req.Query("page_token", token)
		}
		var page listTablesResponse
		if err := c.client.do(ctx, req, &page); err != nil {
			return nil, err
		}
		names = append(names, page.Tables...)
		if page.PageToken == "" || len(page.Tables) == 0 {
			break
		}
		token = page.PageToken
	}
	sort.Strings(names)
	return names, nil
}

// CreateTable uploads rows as an Arrow IPC stream.
func (c *Connection) CreateTable(ctx context.Context, name string, rows array.RecordReader, mode table.WriteMode) (table.Table, error) {
	req := c.client.Post(tablePath(name, "create")).
		Query("mode", mode.String()).
		Arrow(rows)
	if err := c.client.do(ctx, req, nil); err != nil {
		return nil, err
	}
	return newTable(c.client, name), nil
}

// OpenTable checks that the table exists.
func (c *Connection) OpenTable(ctx context.Context, name string) (table.Table, error) {
	t := newTable(c.client, name)
	if _, err := t.describe(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// DropTable deletes a table.
func (c *Connection) DropTable(ctx context.Context, name string) error {
	return c.client.doNotFound(ctx, c.client.Post(tablePath(name, "drop")), nil,
		errs.NotFound("table %s was not found", name))
}

// Close is a no-op; the HTTP connection pool belongs to the sender.
func (c *Connection) Close() error { return nil }
