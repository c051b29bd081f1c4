// Package relay implements the chat-to-voice pipeline: messages from the
// configured source text channel are filtered, transformed, synthesized,
// and played into the author's voice channel. All gateway events are
// serialized through a single loop so filter decisions, reconnects, and
// playback ordering never race.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/helmholtz/internal/observe"
	"github.com/MrWong99/helmholtz/internal/prefs"
	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

// eventQueueSize bounds the serialized event loop's backlog.
const eventQueueSize = 64

// VoiceSessions is the subset of the voice manager the relay drives.
type VoiceSessions interface {
	Reconcile(ctx context.Context, channelID string) (moved bool, err error)
	Disconnect() bool
	CurrentChannel() string
	Enqueue(buf []byte) bool
}

// Messenger posts plain text messages to a channel.
type Messenger interface {
	Send(channelID, content string) error
}

// PreferenceSource resolves a member's voice preference.
type PreferenceSource interface {
	Get(ctx context.Context, memberID string) prefs.Preference
}

// Config carries the relay's fixed scope and tuning.
type Config struct {
	GuildID          string
	SourceChannelID  string
	SelfUserID       string
	MaxMessageLength int
}

// Relay consumes gateway events and turns eligible messages into speech.
type Relay struct {
	cfg       Config
	sessions  VoiceSessions
	synth     tts.Synthesizer
	prefs     PreferenceSource
	messenger Messenger
	metrics   *observe.Metrics

	events chan any
}

// New creates a Relay. metrics may not be nil; pass
// [observe.DefaultMetrics] outside of tests.
func New(cfg Config, sessions VoiceSessions, synth tts.Synthesizer, prefSource PreferenceSource, messenger Messenger, metrics *observe.Metrics) *Relay {
	return &Relay{
		cfg:       cfg,
		sessions:  sessions,
		synth:     synth,
		prefs:     prefSource,
		messenger: messenger,
		metrics:   metrics,
		events:    make(chan any, eventQueueSize),
	}
}

// HandleMessage queues a message event for the serialized loop. Returns
// false when the loop is backlogged and the event was dropped.
func (r *Relay) HandleMessage(ev MessageEvent) bool {
	return r.enqueueEvent(ev)
}

// HandleVoiceState queues a voice-state event for the serialized loop.
func (r *Relay) HandleVoiceState(ev VoiceStateEvent) bool {
	return r.enqueueEvent(ev)
}

func (r *Relay) enqueueEvent(ev any) bool {
	select {
	case r.events <- ev:
		return true
	default:
		slog.Warn("relay: event queue full, dropping event", "type", fmt.Sprintf("%T", ev))
		r.metrics.RecordDrop(context.Background(), observe.DropQueueFull)
		return false
	}
}

// Run processes queued events until ctx is cancelled. Events are handled
// strictly in arrival order; a panic in one handler is recovered and logged
// so a malformed event cannot take the relay down.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			r.dispatch(ctx, ev)
		}
	}
}

func (r *Relay) dispatch(ctx context.Context, ev any) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("relay: recovered from handler panic", "panic", rec, "type", fmt.Sprintf("%T", ev))
		}
	}()

	switch e := ev.(type) {
	case MessageEvent:
		r.processMessage(ctx, e)
	case VoiceStateEvent:
		r.processVoiceState(ctx, e)
	default:
		slog.Error("relay: unknown event type", "type", fmt.Sprintf("%T", ev))
	}
}

// processMessage runs the filter chain and, for eligible messages, drives
// reconnection, synthesis, and playback.
func (r *Relay) processMessage(ctx context.Context, ev MessageEvent) {
	// Most messages come from members who are not voice-connected; bail
	// out before any other check.
	if ev.AuthorVoiceChannelID == "" {
		r.metrics.RecordDrop(ctx, observe.DropNotInVoice)
		return
	}
	if ev.GuildID != r.cfg.GuildID {
		slog.Warn("relay: guild mismatch",
			"configured_guild_id", r.cfg.GuildID,
			"message_guild_id", ev.GuildID)
		r.metrics.RecordDrop(ctx, observe.DropWrongGuild)
		return
	}
	if ev.ChannelID != r.cfg.SourceChannelID {
		r.metrics.RecordDrop(ctx, observe.DropWrongChannel)
		return
	}
	if !ev.AuthorSelfMuted {
		r.metrics.RecordDrop(ctx, observe.DropNotMuted)
		return
	}
	if ev.VoiceChannelOccupants < 1 {
		r.metrics.RecordDrop(ctx, observe.DropEmptyChannel)
		return
	}
	if ev.AuthorID == r.cfg.SelfUserID {
		r.metrics.RecordDrop(ctx, observe.DropSelf)
		return
	}

	text := Transform(ev.Content, r.cfg.MaxMessageLength)
	if text == "" {
		r.metrics.RecordDrop(ctx, observe.DropEmptyText)
		return
	}

	prevChannel := r.sessions.CurrentChannel()
	moved, err := r.sessions.Reconcile(ctx, ev.AuthorVoiceChannelID)
	if err != nil {
		slog.Error("relay: voice reconcile failed",
			"channel_id", ev.AuthorVoiceChannelID, "error", err)
		return
	}
	if moved {
		r.metrics.RecordReconnect(ctx)
		if prevChannel == "" {
			r.metrics.SessionStarted(ctx)
		}
	}

	pref := r.prefs.Get(ctx, ev.AuthorID)

	start := time.Now()
	audio, err := r.synth.Synthesize(ctx, text, tts.VoiceOptions{
		Gender: pref.Gender,
		Pitch:  pref.Pitch,
	})
	r.metrics.RecordSynthesis(ctx, time.Since(start), err)
	if err != nil {
		slog.Error("relay: synthesis failed", "error", err)
		return
	}
	if len(audio) == 0 {
		slog.Warn("relay: synthesis produced no audio",
			"original_length", len([]rune(ev.Content)),
			"filtered_length", len([]rune(text)))
		return
	}

	if !r.sessions.Enqueue(audio) {
		slog.Warn("relay: playback queue full, dropping utterance")
		r.metrics.RecordDrop(ctx, observe.DropQueueFull)
		return
	}
	r.metrics.RecordRelayed(ctx)
}

// processVoiceState announces fresh joins and reconciles the relay's own
// session against the new channel occupancy.
func (r *Relay) processVoiceState(ctx context.Context, ev VoiceStateEvent) {
	if ev.GuildID != r.cfg.GuildID {
		slog.Warn("relay: guild mismatch on voice state",
			"configured_guild_id", r.cfg.GuildID,
			"event_guild_id", ev.GuildID)
		return
	}

	if ev.PrevChannelID == "" && ev.ChannelID != "" && ev.MemberID != r.cfg.SelfUserID {
		msg := fmt.Sprintf("<@%s> さんがボイスチャンネルに参加しました", ev.MemberID)
		if err := r.messenger.Send(r.cfg.SourceChannelID, msg); err != nil {
			slog.Debug("relay: join announcement failed", "member_id", ev.MemberID, "error", err)
		}
	}

	if r.sessions.CurrentChannel() == "" {
		return
	}

	// Alone in the channel means nobody left to speak to.
	if ev.BotChannelOccupants < 2 {
		if r.sessions.Disconnect() {
			r.metrics.SessionEnded(ctx)
			slog.Info("relay: left empty voice channel")
		}
		return
	}

	// Speculative warmup so the next synthesis request hits a warm
	// connection.
	if err := r.synth.Warmup(ctx); err != nil {
		slog.Warn("relay: synthesizer warmup failed", "error", err)
	}
}
