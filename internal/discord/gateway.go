package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/helmholtz/internal/relay"
)

// EventSink receives translated gateway events. Implemented by the relay.
type EventSink interface {
	HandleMessage(relay.MessageEvent) bool
	HandleVoiceState(relay.VoiceStateEvent) bool
}

// Gateway translates raw discordgo events into relay events, enriching them
// with voice-state lookups from the session cache. It also implements
// [relay.Messenger] for outbound text.
type Gateway struct {
	bot  *Bot
	sink EventSink
}

// NewGateway creates a Gateway for the bot. Call [Gateway.Bind] once the
// sink exists; the gateway is also the relay's outbound Messenger, so it is
// constructed before the relay.
func NewGateway(bot *Bot) *Gateway {
	return &Gateway{bot: bot}
}

// Bind wires the bot's gateway events to the sink.
func (g *Gateway) Bind(sink EventSink) {
	g.sink = sink
	g.bot.Session().AddHandler(g.onMessageCreate)
	g.bot.Session().AddHandler(g.onVoiceStateUpdate)
}

// Send posts a plain text message to a channel.
func (g *Gateway) Send(channelID, content string) error {
	_, err := g.bot.Session().ChannelMessageSend(channelID, content)
	return err
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ev := relay.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
	}

	if vs, err := s.State.VoiceState(m.GuildID, m.Author.ID); err == nil && vs.ChannelID != "" {
		ev.AuthorVoiceChannelID = vs.ChannelID
		ev.AuthorSelfMuted = vs.SelfMute
		ev.VoiceChannelOccupants = channelOccupancy(guildVoiceStates(s, m.GuildID), vs.ChannelID)
	}

	g.sink.HandleMessage(ev)
}

func (g *Gateway) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	ev := relay.VoiceStateEvent{
		GuildID:   v.GuildID,
		MemberID:  v.UserID,
		ChannelID: v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		ev.PrevChannelID = v.BeforeUpdate.ChannelID
	}

	// The relay cares about occupancy of its own channel, looked up via
	// the bot's cached voice state.
	if selfID := g.bot.SelfUserID(); selfID != "" {
		if vs, err := s.State.VoiceState(v.GuildID, selfID); err == nil && vs.ChannelID != "" {
			ev.BotChannelOccupants = channelOccupancy(guildVoiceStates(s, v.GuildID), vs.ChannelID)
		}
	}

	g.sink.HandleVoiceState(ev)
}

// guildVoiceStates returns the cached voice states for a guild, or nil when
// the guild is not in the state cache.
func guildVoiceStates(s *discordgo.Session, guildID string) []*discordgo.VoiceState {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		slog.Debug("discord: guild not in state cache", "guild_id", guildID, "err", err)
		return nil
	}
	return guild.VoiceStates
}

// channelOccupancy counts members connected to the given voice channel.
func channelOccupancy(states []*discordgo.VoiceState, channelID string) int {
	n := 0
	for _, vs := range states {
		if vs != nil && vs.ChannelID == channelID {
			n++
		}
	}
	return n
}
