// Package remote talks to a hosted or self-hosted LanceDB-compatible
// database over its REST API.
//
// A Client resolves a db://<name> URL to an endpoint, attaches the
// authentication headers, and hands each request to a Sender. The default
// HTTPSender uses an *http.Client with a 30 second timeout; tests inject a
// SenderFunc:
//
//	c, err := remote.NewClient("db://mydb", apiKey, "us-east-1",
//	    remote.WithSender(remote.SenderFunc(func(req *http.Request) (*http.Response, error) {
//	        return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("{}"))}, nil
//	    })),
//	)
//
// Connection and Table implement the table contracts on top of the client.
// Row data travels as Arrow IPC streams; query results come back as Arrow
// IPC files. Requests are never retried at this layer.
package remote
