package prefs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

type fakeBackend struct {
	mu sync.Mutex

	getResult *Preference
	getErr    error
	upsertErr error

	getCalls    []string
	upsertCalls []struct {
		memberID string
		update   Update
	}
}

func (f *fakeBackend) Get(_ context.Context, memberID string) (*Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, memberID)
	return f.getResult, f.getErr
}

func (f *fakeBackend) Upsert(_ context.Context, memberID string, u Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls = append(f.upsertCalls, struct {
		memberID string
		update   Update
	}{memberID, u})
	return f.upsertErr
}

func (f *fakeBackend) upserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upsertCalls)
}

func waitForUpserts(t *testing.T, f *fakeBackend, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for f.upserts() < want {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d upserts, got %d", want, f.upserts())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func genderPtr(g tts.Gender) *tts.Gender { return &g }
func pitchPtr(p float64) *float64        { return &p }

func TestGet_NoBackendReturnsDefaults(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	if got := s.Get(context.Background(), "m1"); got != Default() {
		t.Errorf("Get = %+v, want defaults", got)
	}
}

func TestGet_CachesBackendResult(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{getResult: &Preference{Gender: tts.GenderMale, Pitch: 3}}
	s := NewStore(backend)

	want := Preference{Gender: tts.GenderMale, Pitch: 3}
	if got := s.Get(context.Background(), "m1"); got != want {
		t.Errorf("first Get = %+v, want %+v", got, want)
	}
	if got := s.Get(context.Background(), "m1"); got != want {
		t.Errorf("second Get = %+v, want %+v", got, want)
	}
	if n := len(backend.getCalls); n != 1 {
		t.Errorf("backend queried %d times, want 1", n)
	}
}

func TestGet_CachesAbsence(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	s := NewStore(backend)

	if got := s.Get(context.Background(), "m1"); got != Default() {
		t.Errorf("Get = %+v, want defaults", got)
	}
	s.Get(context.Background(), "m1")
	if n := len(backend.getCalls); n != 1 {
		t.Errorf("backend queried %d times for known-absent member, want 1", n)
	}
}

func TestGet_BackendErrorNotCached(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{getErr: errors.New("connection refused")}
	s := NewStore(backend)

	if got := s.Get(context.Background(), "m1"); got != Default() {
		t.Errorf("Get during outage = %+v, want defaults", got)
	}

	backend.mu.Lock()
	backend.getErr = nil
	backend.getResult = &Preference{Gender: tts.GenderMale, Pitch: 1}
	backend.mu.Unlock()

	want := Preference{Gender: tts.GenderMale, Pitch: 1}
	if got := s.Get(context.Background(), "m1"); got != want {
		t.Errorf("Get after recovery = %+v, want %+v", got, want)
	}
}

func TestSet_MergesPartialUpdates(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	ctx := context.Background()

	got, err := s.Set(ctx, "m1", Update{Gender: genderPtr(tts.GenderMale)})
	if err != nil {
		t.Fatalf("Set gender: %v", err)
	}
	if got.Gender != tts.GenderMale || got.Pitch != 0 {
		t.Errorf("after gender update: %+v", got)
	}

	got, err = s.Set(ctx, "m1", Update{Pitch: pitchPtr(7)})
	if err != nil {
		t.Fatalf("Set pitch: %v", err)
	}
	if got.Gender != tts.GenderMale || got.Pitch != 7 {
		t.Errorf("pitch update lost gender: %+v", got)
	}
}

func TestSet_ClampsPitch(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	ctx := context.Background()

	tests := []struct {
		in   float64
		want float64
	}{
		{-100, MinPitch},
		{100, MaxPitch},
		{0, 0},
		{-20, -20},
		{20, 20},
	}
	for _, tt := range tests {
		got, err := s.Set(ctx, "m1", Update{Pitch: pitchPtr(tt.in)})
		if err != nil {
			t.Fatalf("Set(%v): %v", tt.in, err)
		}
		if got.Pitch != tt.want {
			t.Errorf("Set pitch %v = %v, want %v", tt.in, got.Pitch, tt.want)
		}
	}
}

func TestSet_EmptyMemberID(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	if _, err := s.Set(context.Background(), "", Update{Pitch: pitchPtr(1)}); err == nil {
		t.Error("expected error for empty member id")
	}
}

func TestSet_PersistsInBackground(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	s := NewStore(backend)

	if _, err := s.Set(context.Background(), "m1", Update{Pitch: pitchPtr(50)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	waitForUpserts(t, backend, 1)

	backend.mu.Lock()
	call := backend.upsertCalls[0]
	backend.mu.Unlock()
	if call.memberID != "m1" {
		t.Errorf("upsert member = %q", call.memberID)
	}
	if call.update.Pitch == nil || *call.update.Pitch != MaxPitch {
		t.Errorf("upsert pitch not clamped: %+v", call.update.Pitch)
	}
}

func TestSet_PersistFailureKeepsCache(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{upsertErr: errors.New("deadline exceeded")}
	s := NewStore(backend)
	ctx := context.Background()

	if _, err := s.Set(ctx, "m1", Update{Gender: genderPtr(tts.GenderMale)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	waitForUpserts(t, backend, 1)

	if got := s.Get(ctx, "m1"); got.Gender != tts.GenderMale {
		t.Errorf("cache lost update after persist failure: %+v", got)
	}
}
