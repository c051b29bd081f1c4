// Package voice owns the single active voice connection for the configured
// guild. The Manager decides when the relay joins, moves between, or drops a
// voice channel, and feeds the shared audio [Player] that each connection
// subscribes to.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/helmholtz/pkg/audio"
)

// Manager holds at most one live voice connection at a time (enforced by
// mutex) and guarantees the previous connection is torn down before a new
// one is established. All exported methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	platform audio.Platform
	player   *Player
	conn     audio.Connection
}

// NewManager creates a Manager for the given platform with a fresh player.
func NewManager(platform audio.Platform) *Manager {
	return &Manager{
		platform: platform,
		player:   NewPlayer(),
	}
}

// Reconcile ensures the active connection targets channelID. When no session
// exists, or the active session's channel differs, the old connection (if
// any) is disconnected first, a new one is established, and the shared
// player is re-attached. Returns moved=true when a connection change
// happened, false when the session already targeted channelID.
func (m *Manager) Reconcile(ctx context.Context, channelID string) (moved bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.ChannelID() == channelID {
		return false, nil
	}

	// Disconnect-before-reconnect: the player is detached with the old
	// connection so queued audio never plays into a stale channel.
	m.dropLocked()

	conn, err := m.platform.Connect(ctx, channelID)
	if err != nil {
		return true, fmt.Errorf("voice: reconcile to %q: %w", channelID, err)
	}
	m.conn = conn
	m.player.Attach(conn.OutputStream(), conn.Done())

	slog.Info("voice: session established", "channel_id", channelID)
	return true, nil
}

// Disconnect tears down the active session. Idempotent; tearing down an
// absent session is a no-op. Returns true when a live session was dropped.
func (m *Manager) Disconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return false
	}
	m.dropLocked()
	return true
}

// CurrentChannel returns the channel ID of the active session, or "" when
// no session exists.
func (m *Manager) CurrentChannel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return ""
	}
	return m.conn.ChannelID()
}

// Enqueue hands an audio buffer to the shared player for in-order playback.
// Returns false if the player's queue is full and the buffer was dropped.
func (m *Manager) Enqueue(buf []byte) bool {
	return m.player.Enqueue(buf)
}

// Close disconnects any active session and stops the player. Used during
// shutdown.
func (m *Manager) Close() {
	m.Disconnect()
	m.player.Close()
}

// dropLocked detaches the player and disconnects the current connection.
// Callers must hold m.mu.
func (m *Manager) dropLocked() {
	if m.conn == nil {
		return
	}
	channelID := m.conn.ChannelID()
	m.player.Detach()
	if err := m.conn.Disconnect(); err != nil {
		slog.Warn("voice: disconnect error", "channel_id", channelID, "error", err)
	}
	m.conn = nil
	slog.Info("voice: session dropped", "channel_id", channelID)
}
