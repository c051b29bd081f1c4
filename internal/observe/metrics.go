// Package observe provides observability primitives for the Helmholtz
// relay: OpenTelemetry metrics with a Prometheus exporter bridge so the
// /metrics endpoint stays scrapeable.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all relay metrics.
const meterName = "github.com/MrWong99/helmholtz"

// Drop reasons recorded on the relay.messages.dropped counter.
const (
	DropNotInVoice   = "author_not_in_voice"
	DropWrongGuild   = "wrong_guild"
	DropWrongChannel = "wrong_channel"
	DropNotMuted     = "author_not_muted"
	DropEmptyChannel = "empty_voice_channel"
	DropSelf         = "own_message"
	DropEmptyText    = "empty_after_transform"
	DropQueueFull    = "queue_full"
)

// Metrics holds all OpenTelemetry metric instruments for the relay.
// All fields are safe for concurrent use.
type Metrics struct {
	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// MessagesRelayed counts messages that made it to playback.
	MessagesRelayed metric.Int64Counter

	// MessagesDropped counts filtered messages. Use with attribute:
	//   attribute.String("reason", ...)
	MessagesDropped metric.Int64Counter

	// VoiceReconnects counts voice channel joins and moves.
	VoiceReconnects metric.Int64Counter

	// ProviderErrors counts synthesis API failures. Use with attribute:
	//   attribute.String("op", ...)
	ProviderErrors metric.Int64Counter

	// ActiveSessions tracks whether a voice session is live (0 or 1).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synthesis API round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TTSDuration, err = m.Float64Histogram("helmholtz.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MessagesRelayed, err = m.Int64Counter("helmholtz.relay.messages",
		metric.WithDescription("Total messages synthesized and queued for playback."),
	); err != nil {
		return nil, err
	}
	if met.MessagesDropped, err = m.Int64Counter("helmholtz.relay.messages.dropped",
		metric.WithDescription("Total messages filtered before playback, by reason."),
	); err != nil {
		return nil, err
	}
	if met.VoiceReconnects, err = m.Int64Counter("helmholtz.voice.reconnects",
		metric.WithDescription("Total voice channel joins and moves."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("helmholtz.provider.errors",
		metric.WithDescription("Total synthesis provider errors by operation."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("helmholtz.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSynthesis records one synthesis round trip.
func (m *Metrics) RecordSynthesis(ctx context.Context, d time.Duration, err error) {
	m.TTSDuration.Record(ctx, d.Seconds())
	if err != nil {
		m.ProviderErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("op", "synthesize")))
	}
}

// RecordRelayed records a message that reached playback.
func (m *Metrics) RecordRelayed(ctx context.Context) {
	m.MessagesRelayed.Add(ctx, 1)
}

// RecordDrop records a filtered message with its reason.
func (m *Metrics) RecordDrop(ctx context.Context, reason string) {
	m.MessagesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordReconnect records a voice channel join or move.
func (m *Metrics) RecordReconnect(ctx context.Context) {
	m.VoiceReconnects.Add(ctx, 1)
}

// SessionStarted and SessionEnded move the active-session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active-session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}
