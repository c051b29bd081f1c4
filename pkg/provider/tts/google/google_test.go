package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

// wavBuffer builds a minimal RIFF/WAVE buffer with the given PCM payload.
func wavBuffer(pcm []byte) []byte {
	header := make([]byte, wavHeaderSize)
	copy(header, "RIFF")
	copy(header[8:], "WAVE")
	return append(header, pcm...)
}

func TestSynthesize_RequestShapeAndHeaderStrip(t *testing.T) {
	t.Parallel()

	pcm := []byte{1, 2, 3, 4}
	var got synthesizeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString(wavBuffer(pcm)),
		})
	}))
	defer srv.Close()

	s, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	audio, err := s.Synthesize(context.Background(), "こんにちは", tts.VoiceOptions{
		Gender: tts.GenderMale,
		Pitch:  5,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(audio, pcm) {
		t.Errorf("expected WAV header stripped, got %v", audio)
	}

	if got.Input.Text != "こんにちは" {
		t.Errorf("input text = %q", got.Input.Text)
	}
	if got.Voice.LanguageCode != "ja-JP" {
		t.Errorf("languageCode = %q", got.Voice.LanguageCode)
	}
	if got.Voice.Name != defaultMaleVoice {
		t.Errorf("voice name = %q, want %q", got.Voice.Name, defaultMaleVoice)
	}
	if got.AudioConfig.AudioEncoding != "LINEAR16" {
		t.Errorf("audioEncoding = %q", got.AudioConfig.AudioEncoding)
	}
	if got.AudioConfig.Pitch != 5 {
		t.Errorf("pitch = %v", got.AudioConfig.Pitch)
	}
	if got.AudioConfig.SpeakingRate != defaultSpeakingRate {
		t.Errorf("speakingRate = %v", got.AudioConfig.SpeakingRate)
	}
}

func TestSynthesize_EmptyAudioContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(synthesizeResponse{})
	}))
	defer srv.Close()

	s, _ := New("k", WithBaseURL(srv.URL))
	audio, err := s.Synthesize(context.Background(), "text", tts.VoiceOptions{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if audio != nil {
		t.Errorf("expected nil buffer for empty audioContent, got %d bytes", len(audio))
	}
}

func TestSynthesize_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"status":"PERMISSION_DENIED"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	s, _ := New("k", WithBaseURL(srv.URL))
	if _, err := s.Synthesize(context.Background(), "text", tts.VoiceOptions{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestWarmup(t *testing.T) {
	t.Parallel()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"voices":[]}`))
	}))
	defer srv.Close()

	s, _ := New("k", WithBaseURL(srv.URL))
	if err := s.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	if path != "/v1/voices" {
		t.Errorf("warmup path = %q", path)
	}
	// Safe to call repeatedly.
	if err := s.Warmup(context.Background()); err != nil {
		t.Fatalf("second Warmup: %v", err)
	}
}

func TestVoiceName_FallsBackToFemale(t *testing.T) {
	t.Parallel()

	s, _ := New("k")
	if name := s.voiceName(tts.GenderFemale); name != defaultFemaleVoice {
		t.Errorf("female voice = %q", name)
	}
	if name := s.voiceName(""); name != defaultFemaleVoice {
		t.Errorf("unknown gender voice = %q, want female fallback", name)
	}
	if name := s.voiceName(tts.GenderMale); name != defaultMaleVoice {
		t.Errorf("male voice = %q", name)
	}
}

func TestStripWAVHeader_NonRIFFUnchanged(t *testing.T) {
	t.Parallel()

	raw := []byte{9, 9, 9}
	if got := stripWAVHeader(raw); !bytes.Equal(got, raw) {
		t.Errorf("non-RIFF buffer modified: %v", got)
	}
}
