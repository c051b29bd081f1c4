// Package google provides a Google Cloud Text-to-Speech backed Synthesizer
// using the plain REST API (POST /v1/text:synthesize). It implements the
// tts.Synthesizer interface.
//
// Audio is requested as LINEAR16 at 48 kHz mono; the WAV container header
// Google prepends is stripped so callers receive raw PCM ready for Opus
// encoding.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	defaultBaseURL      = "https://texttospeech.googleapis.com"
	defaultLanguage     = "ja-JP"
	defaultFemaleVoice  = "ja-JP-Wavenet-A"
	defaultMaleVoice    = "ja-JP-Wavenet-D"
	defaultSpeakingRate = 1.2
	sampleRateHertz     = 48000

	// wavHeaderSize is the byte length of the canonical RIFF/WAVE header
	// Google prepends to LINEAR16 responses.
	wavHeaderSize = 44
)

// Option is a functional option for configuring the Google Synthesizer.
type Option func(*Synthesizer)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(s *Synthesizer) {
		s.baseURL = baseURL
	}
}

// WithLanguage sets the BCP-47 language code (e.g., "ja-JP").
func WithLanguage(code string) Option {
	return func(s *Synthesizer) {
		s.language = code
	}
}

// WithVoices sets the voice names used for the female and male timbres.
// Empty values keep the defaults.
func WithVoices(female, male string) Option {
	return func(s *Synthesizer) {
		if female != "" {
			s.femaleVoice = female
		}
		if male != "" {
			s.maleVoice = male
		}
	}
}

// WithSpeakingRate sets the speaking rate (Google accepts [0.25, 4.0]).
func WithSpeakingRate(rate float64) Option {
	return func(s *Synthesizer) {
		s.speakingRate = rate
	}
}

// Synthesizer implements tts.Synthesizer backed by the Google Cloud TTS
// REST API.
type Synthesizer struct {
	apiKey       string
	baseURL      string
	language     string
	femaleVoice  string
	maleVoice    string
	speakingRate float64
	httpClient   *http.Client
}

// New creates a new Google Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("google: apiKey must not be empty")
	}
	s := &Synthesizer{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		language:     defaultLanguage,
		femaleVoice:  defaultFemaleVoice,
		maleVoice:    defaultMaleVoice,
		speakingRate: defaultSpeakingRate,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ---- wire types ----

// synthesizeRequest is the JSON payload for POST /v1/text:synthesize.
type synthesizeRequest struct {
	Input       textInput   `json:"input"`
	Voice       voiceSelect `json:"voice"`
	AudioConfig audioConfig `json:"audioConfig"`
}

type textInput struct {
	Text string `json:"text"`
}

type voiceSelect struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type audioConfig struct {
	AudioEncoding   string  `json:"audioEncoding"`
	SpeakingRate    float64 `json:"speakingRate,omitempty"`
	Pitch           float64 `json:"pitch,omitempty"`
	SampleRateHertz int     `json:"sampleRateHertz,omitempty"`
}

// synthesizeResponse is the JSON response; AudioContent is base64-encoded.
type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Warmup issues a lightweight voices listing so the TLS session and HTTP/2
// channel to the API are established before the first synthesis request.
func (s *Synthesizer) Warmup(ctx context.Context) error {
	u := fmt.Sprintf("%s/v1/voices?languageCode=%s&key=%s",
		s.baseURL, url.QueryEscape(s.language), url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("google: warmup: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google: warmup: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google: warmup: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Synthesize sends one synthesis request and returns the raw PCM audio with
// the WAV header stripped. An empty audioContent yields (nil, nil).
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.VoiceOptions) ([]byte, error) {
	body := synthesizeRequest{
		Input: textInput{Text: text},
		Voice: voiceSelect{
			LanguageCode: s.language,
			Name:         s.voiceName(voice.Gender),
		},
		AudioConfig: audioConfig{
			AudioEncoding:   "LINEAR16",
			SpeakingRate:    s.speakingRate,
			Pitch:           voice.Pitch,
			SampleRateHertz: sampleRateHertz,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("google: marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/text:synthesize?key=%s", s.baseURL, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("google: synthesize: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: synthesize HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google: synthesize: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var sr synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("google: synthesize decode: %w", err)
	}
	if sr.AudioContent == "" {
		return nil, nil
	}

	audio, err := base64.StdEncoding.DecodeString(sr.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("google: synthesize base64: %w", err)
	}
	return stripWAVHeader(audio), nil
}

// Close releases idle connections held by the HTTP client.
func (s *Synthesizer) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// voiceName maps a gender to the configured voice name. Unknown values fall
// back to the female voice, matching the preference default.
func (s *Synthesizer) voiceName(g tts.Gender) string {
	if g == tts.GenderMale {
		return s.maleVoice
	}
	return s.femaleVoice
}

// stripWAVHeader removes the RIFF/WAVE container header from LINEAR16
// responses, returning raw PCM. Buffers without a RIFF magic are returned
// unchanged.
func stripWAVHeader(audio []byte) []byte {
	if len(audio) >= wavHeaderSize && bytes.HasPrefix(audio, []byte("RIFF")) {
		return audio[wavHeaderSize:]
	}
	return audio
}
