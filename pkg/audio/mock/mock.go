// Package mock provides test doubles for the audio.Platform and
// audio.Connection interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/helmholtz/pkg/audio"
)

// Connection is a mock audio.Connection that records playback buffers.
type Connection struct {
	mu sync.Mutex

	// ID is returned from ChannelID.
	ID string

	// DisconnectErr is returned from the first Disconnect call.
	DisconnectErr error

	// Disconnects counts Disconnect calls (including no-op repeats).
	Disconnects int

	output chan []byte
	done   chan struct{}
	closed bool
}

// NewConnection creates a mock connection for the given channel ID.
func NewConnection(id string) *Connection {
	return &Connection{
		ID:     id,
		output: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

// ChannelID returns the configured channel ID.
func (c *Connection) ChannelID() string { return c.ID }

// OutputStream returns the buffered playback channel.
func (c *Connection) OutputStream() chan<- []byte { return c.output }

// Done returns the termination channel.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Disconnect marks the connection closed. Safe to call repeatedly.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Disconnects++
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.DisconnectErr
}

// Closed reports whether Disconnect has been called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Played drains and returns all buffers written to the output stream so far.
func (c *Connection) Played() [][]byte {
	var out [][]byte
	for {
		select {
		case buf := <-c.output:
			out = append(out, buf)
		default:
			return out
		}
	}
}

// Platform is a mock audio.Platform that hands out mock Connections.
type Platform struct {
	mu sync.Mutex

	// ConnectErr, if non-nil, is returned from Connect.
	ConnectErr error

	// ConnectCalls records the channel IDs passed to Connect in order.
	ConnectCalls []string

	// Connections records the connections handed out, in order.
	Connections []*Connection
}

// Connect records the call and returns a fresh mock Connection.
func (p *Platform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, channelID)
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	conn := NewConnection(channelID)
	p.Connections = append(p.Connections, conn)
	return conn, nil
}

// Last returns the most recently handed-out connection, or nil.
func (p *Platform) Last() *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Connections) == 0 {
		return nil
	}
	return p.Connections[len(p.Connections)-1]
}

// Compile-time interface assertions.
var (
	_ audio.Platform   = (*Platform)(nil)
	_ audio.Connection = (*Connection)(nil)
)
