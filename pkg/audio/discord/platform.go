// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It bridges the
// relay's raw PCM buffers to Discord's Opus-based voice transport.
//
// The platform requires an active *discordgo.Session (owned by the bot
// layer) and a guild ID. Each call to [Platform.Connect] joins the specified
// voice channel and returns a [Connection] that encodes and sends playback
// audio.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/helmholtz/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// Platform implements [audio.Platform] using a discordgo voice connection.
// It requires an active *discordgo.Session (owned by the bot layer).
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session
	guildID string
}

// New creates a new Discord Platform for the given session and guild.
func New(session *discordgo.Session, guildID string) *Platform {
	return &Platform{
		session: session,
		guildID: guildID,
	}
}

// Connect joins the voice channel identified by channelID and returns an
// active [audio.Connection]. The supplied ctx governs the connection-setup
// phase only.
func (p *Platform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	// mute=false (we send audio), deaf=true (the relay never listens).
	vc, err := p.session.ChannelVoiceJoin(p.guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}
	return newConnection(vc, channelID), nil
}
