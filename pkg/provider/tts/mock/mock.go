// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Synthesizer to feed a controlled audio buffer to consumers and to
// verify which text and voice options reached the TTS backend.
//
// Example:
//
//	s := &mock.Synthesizer{SynthesizeResult: []byte("audio")}
//	buf, _ := s.Synthesize(ctx, "hello", tts.VoiceOptions{})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the VoiceOptions passed to Synthesize.
	Voice tts.VoiceOptions
}

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SynthesizeResult is returned from Synthesize. May be nil to simulate
	// the "nothing to play" case.
	SynthesizeResult []byte

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// WarmupErr, if non-nil, is returned as the error from Warmup.
	WarmupErr error

	// --- Call records ---

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall

	// WarmupCalls counts calls to Warmup.
	WarmupCalls int

	// CloseCalls counts calls to Close.
	CloseCalls int
}

// Warmup records the call and returns WarmupErr.
func (s *Synthesizer) Warmup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WarmupCalls++
	return s.WarmupErr
}

// Synthesize records the call and returns SynthesizeResult, SynthesizeErr.
func (s *Synthesizer) Synthesize(_ context.Context, text string, voice tts.VoiceOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	if s.SynthesizeErr != nil {
		return nil, s.SynthesizeErr
	}
	return s.SynthesizeResult, nil
}

// Close records the call and returns nil.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return nil
}

// SynthesizeCount returns the number of recorded Synthesize calls.
// Thread-safe, for assertions against a concurrently running consumer.
func (s *Synthesizer) SynthesizeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SynthesizeCalls)
}

// LastSynthesize returns the most recently recorded Synthesize call, or nil.
func (s *Synthesizer) LastSynthesize() *SynthesizeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.SynthesizeCalls) == 0 {
		return nil
	}
	return &s.SynthesizeCalls[len(s.SynthesizeCalls)-1]
}

// Reset clears all recorded calls. Thread-safe.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = nil
	s.WarmupCalls = 0
	s.CloseCalls = 0
}

// Ensure Synthesizer implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Synthesizer)(nil)
