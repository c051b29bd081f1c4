// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A synthesizer wraps a speech synthesis service (e.g., Google Cloud TTS) and
// turns a short text plus voice options into a single encoded audio buffer.
// The relay synthesizes whole utterances, so the interface is deliberately
// request/response rather than streaming.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Warmup primes the underlying network channel so the first synthesis
	// request after a period of silence responds faster. Safe to call
	// repeatedly. Failures are for the caller to log; implementations must
	// not retry internally.
	Warmup(ctx context.Context) error

	// Synthesize turns text into an audio buffer of raw 48 kHz mono
	// little-endian PCM using the given voice options. Text is expected to be
	// pre-filtered and length-capped by the caller; it is not re-validated.
	//
	// A nil or empty buffer with a nil error means "nothing to play" and is
	// not an error. A non-nil error indicates a transport-level failure
	// (network, auth, quota) and propagates to the caller for logging only —
	// never for retry inside this package.
	Synthesize(ctx context.Context, text string, voice VoiceOptions) ([]byte, error)

	// Close releases the underlying network channel. It is only called once,
	// during shutdown.
	Close() error
}
