// Package audio defines the interfaces for voice-channel connectivity and
// audio playback within Helmholtz.
//
// The two primary abstractions are:
//
//   - [Platform] — joins a voice channel and returns a [Connection].
//   - [Connection] — represents the active presence on that channel and
//     accepts PCM audio for playback.
//
// Implementations are provided by platform-specific adapter packages
// (e.g., audio/discord). The interfaces are intentionally narrow: the relay
// only ever speaks, it never listens, so there is no input side.
//
// This package lives under pkg/ because external platform adapters are
// expected to implement [Platform] and [Connection].
package audio

import "context"

// Connection represents the relay's active presence on one voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// ChannelID returns the identifier of the voice channel this connection
	// is joined to.
	ChannelID() string

	// OutputStream returns the write-only channel for playback audio.
	// Buffers written here are raw 48 kHz mono little-endian PCM of arbitrary
	// length; the adapter chunks and encodes them for the platform. The
	// channel is buffered; it acts as the player's flow-control window.
	//
	// Ownership: the returned channel is owned by the writer. The platform
	// does NOT close it on Disconnect — writers must select on [Connection.Done]
	// to stop writing once the connection is torn down.
	OutputStream() chan<- []byte

	// Done returns a channel that is closed when the connection terminates,
	// whether by Disconnect or by transport failure.
	Done() <-chan struct{}

	// Disconnect tears down the connection and stops playback. It is safe to
	// call more than once; subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
// Implementations wrap provider-specific SDKs (Discord, …) and expose a
// uniform [Connection] abstraction.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by channelID and returns an
	// active [Connection]. The supplied ctx governs the connection attempt
	// only; once connected, the Connection lives until Disconnect is called.
	Connect(ctx context.Context, channelID string) (Connection, error)
}
