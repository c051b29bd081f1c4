package relay

// MessageEvent is a text message observed on the gateway, enriched with the
// author's current voice state so the relay can filter without further
// lookups.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Content   string

	// AuthorVoiceChannelID is the voice channel the author currently
	// occupies, or "" when they are not voice-connected.
	AuthorVoiceChannelID string

	// AuthorSelfMuted reports whether the author muted their own
	// microphone. Server mutes do not count.
	AuthorSelfMuted bool

	// VoiceChannelOccupants counts members in the author's voice channel,
	// the author included.
	VoiceChannelOccupants int
}

// VoiceStateEvent is a voice-state change observed on the gateway.
type VoiceStateEvent struct {
	GuildID  string
	MemberID string

	// ChannelID is the member's voice channel after the change, "" when
	// they disconnected.
	ChannelID string

	// PrevChannelID is the member's voice channel before the change, ""
	// when they just joined voice.
	PrevChannelID string

	// BotChannelOccupants counts members currently in the relay's own
	// voice channel, the relay itself included. Only meaningful while the
	// relay is connected.
	BotChannelOccupants int
}
