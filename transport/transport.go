// Package transport is the thin host device adapter the nvram core
// depends on but does not implement itself: it frames one
// nvram.Request/nvram.Response pair at a time over a net.Conn with
// encoding/gob and hands the decoded request to an nvram.Engine.
//
// The engine's own internal mutex already serializes Dispatch calls, so
// any number of concurrent client connections funnel through it safely
// without a separate queue here.
package transport

import (
	"encoding/gob"
	"net"
	"sync"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/nvram"
)

// Serve accepts connections on ln until it returns an error (typically
// because ln was closed during shutdown), handling each on its own
// goroutine.
func Serve(ln net.Listener, eng *nvram.Engine) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn, eng)
	}
}

func serveConn(conn net.Conn, eng *nvram.Engine) {
	defer conn.Close()
	dec := gob.NewDecoder(conn)
	enc := gob.NewEncoder(conn)
	for {
		var req nvram.Request
		if err := dec.Decode(&req); err != nil {
			nlog.Printf2("transport", "decode failed, closing: %v", err)
			return
		}
		resp := eng.Dispatch(req)
		if err := enc.Encode(&resp); err != nil {
			nlog.Printf2("transport", "encode failed, closing: %v", err)
			return
		}
	}
}

// Client is a connection to a transport.Serve listener. One Client may
// be shared by multiple goroutines; requests are serialized on the wire.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder
}

// Dial connects to addr and returns a ready Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an already-established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, enc: gob.NewEncoder(conn), dec: gob.NewDecoder(conn)}
}

// Do sends req and blocks for the matching response.
func (c *Client) Do(req nvram.Request) (nvram.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(&req); err != nil {
		return nvram.Response{}, err
	}
	var resp nvram.Response
	if err := c.dec.Decode(&resp); err != nil {
		return nvram.Response{}, err
	}
	return resp, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
