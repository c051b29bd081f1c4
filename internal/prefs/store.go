// Package prefs manages per-member voice preferences: the synthesis gender
// and pitch applied when a member's messages are spoken. Preferences are
// cached in memory for the lifetime of the process and optionally persisted
// through a pluggable backend.
package prefs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

const (
	// MinPitch and MaxPitch bound the stored pitch in semitones, matching
	// the range the synthesis API accepts.
	MinPitch = -20.0
	MaxPitch = 20.0

	upsertTimeout = 5 * time.Second
)

// Preference holds one member's voice settings.
type Preference struct {
	Gender tts.Gender
	Pitch  float64
}

// Default returns the preference applied to members who never set one.
func Default() Preference {
	return Preference{Gender: tts.GenderFemale, Pitch: 0}
}

// Update carries a partial preference change. Nil fields are left untouched
// on the stored record.
type Update struct {
	Gender *tts.Gender
	Pitch  *float64
}

// Backend persists preferences. Get returns (nil, nil) when no record
// exists for the member.
type Backend interface {
	Get(ctx context.Context, memberID string) (*Preference, error)
	Upsert(ctx context.Context, memberID string, u Update) error
}

// Store caches preferences per member and writes changes through to the
// backend. A nil backend yields a purely in-memory store. All methods are
// safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	cache   map[string]*Preference // nil value records a known-absent member
}

// NewStore creates a Store over the given backend. backend may be nil.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		cache:   make(map[string]*Preference),
	}
}

// Get returns the member's preference, falling back to defaults when none is
// stored or the backend is unavailable. Backend errors are logged, not
// returned; the lookup is retried on the next call.
func (s *Store) Get(ctx context.Context, memberID string) Preference {
	s.mu.Lock()
	cached, ok := s.cache[memberID]
	s.mu.Unlock()
	if ok {
		if cached == nil {
			return Default()
		}
		return *cached
	}

	if s.backend == nil {
		return Default()
	}

	pref, err := s.backend.Get(ctx, memberID)
	if err != nil {
		slog.Warn("prefs: lookup failed, using defaults", "member_id", memberID, "error", err)
		return Default()
	}

	s.mu.Lock()
	s.cache[memberID] = pref
	s.mu.Unlock()

	if pref == nil {
		return Default()
	}
	return *pref
}

// Set applies a partial update to the member's cached preference and kicks
// off a background write to the backend. Pitch values outside
// [MinPitch, MaxPitch] are clamped. Returns the preference as stored.
func (s *Store) Set(ctx context.Context, memberID string, u Update) (Preference, error) {
	if memberID == "" {
		return Preference{}, errors.New("prefs: empty member id")
	}
	if u.Pitch != nil {
		clamped := clampPitch(*u.Pitch)
		u.Pitch = &clamped
	}

	s.mu.Lock()
	pref := Default()
	if cached := s.cache[memberID]; cached != nil {
		pref = *cached
	}
	if u.Gender != nil {
		pref.Gender = *u.Gender
	}
	if u.Pitch != nil {
		pref.Pitch = *u.Pitch
	}
	s.cache[memberID] = &pref
	s.mu.Unlock()

	if s.backend != nil {
		// Persistence is best-effort: the cached value is already live, a
		// failed write only loses the setting across restarts.
		go func() {
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upsertTimeout)
			defer cancel()
			if err := s.backend.Upsert(wctx, memberID, u); err != nil {
				slog.Error("prefs: persist failed", "member_id", memberID, "error", err)
			}
		}()
	}

	return pref, nil
}

func clampPitch(p float64) float64 {
	if p < MinPitch {
		return MinPitch
	}
	if p > MaxPitch {
		return MaxPitch
	}
	return p
}
