package couchbase

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pior/couchbase/wire"
)

// DefaultKVPort is the key-value port used when a hostname carries none.
const DefaultKVPort = "11210"

// Endpoint sends one request frame and returns the matching response.
// Send must return protocol-level failures (non-success statuses) in the
// response, not as an error. Errors that desynchronise the stream should
// report ShouldCloseConnection so the dispatcher discards the endpoint.
type Endpoint interface {
	Send(ctx context.Context, req *wire.Request) (*Response, error)
	Close() error
}

// OpaqueMismatchError means a response did not belong to the request just sent.
type OpaqueMismatchError struct {
	Want, Got uint32
}

func (e *OpaqueMismatchError) Error() string {
	return fmt.Sprintf("couchbase: response opaque %d does not match request %d", e.Got, e.Want)
}

func (e *OpaqueMismatchError) ShouldCloseConnection() bool {
	return true
}

// ConnEndpoint is an Endpoint over a single connection, one request at a time.
type ConnEndpoint struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

var _ Endpoint = (*ConnEndpoint)(nil)

func NewConnEndpoint(conn net.Conn) *ConnEndpoint {
	return &ConnEndpoint{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Send writes the frame, content included, with a single vectored write and
// reads the response. The context deadline, if any, bounds both.
func (e *ConnEndpoint) Send(ctx context.Context, req *wire.Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		e.conn.SetDeadline(deadline)
	} else {
		e.conn.SetDeadline(time.Time{})
	}

	if err := wire.WriteRequest(e.conn, req); err != nil {
		return nil, err
	}

	resp, err := wire.ReadResponse(e.reader)
	if err != nil {
		return nil, err
	}
	if resp.Opaque != req.Opaque {
		return nil, &OpaqueMismatchError{Want: req.Opaque, Got: resp.Opaque}
	}
	return resp, nil
}

func (e *ConnEndpoint) Close() error {
	return e.conn.Close()
}

// NodeAddress returns host:port for node, adding port when the hostname has
// none.
func NodeAddress(node Node, port string) string {
	host := node.Hostname()
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}

// DialEndpoint returns a Config.Dial function opening TCP connections to the
// key-value port of each node.
func DialEndpoint(dialer *net.Dialer, port string) func(ctx context.Context, node Node) (Endpoint, error) {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if port == "" {
		port = DefaultKVPort
	}
	return func(ctx context.Context, node Node) (Endpoint, error) {
		conn, err := dialer.DialContext(ctx, "tcp", NodeAddress(node, port))
		if err != nil {
			return nil, err
		}
		return NewConnEndpoint(conn), nil
	}
}
