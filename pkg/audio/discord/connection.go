package discord

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/helmholtz/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

// outputChannelBuffer is the playback flow-control window: buffers queued
// beyond this block the writer until the send loop catches up.
const outputChannelBuffer = 16

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. Incoming PCM buffers are upmixed to stereo,
// chunked into 20 ms frames, encoded to Opus, and sent to Discord.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc        *discordgo.VoiceConnection
	channelID string

	output chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// disconnectVC is called during Disconnect to tear down the voice
	// connection. Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the background send loop.
func newConnection(vc *discordgo.VoiceConnection, channelID string) *Connection {
	c := &Connection{
		vc:        vc,
		channelID: channelID,
		output:    make(chan []byte, outputChannelBuffer),
		done:      make(chan struct{}),
	}
	if vc != nil {
		c.disconnectVC = vc.Disconnect
	}
	go c.sendLoop()
	return c
}

// ChannelID returns the joined voice channel's identifier.
func (c *Connection) ChannelID() string {
	return c.channelID
}

// OutputStream returns the write-only channel for playback audio.
func (c *Connection) OutputStream() chan<- []byte {
	return c.output
}

// Done returns a channel closed when the connection terminates.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Disconnect tears down the voice connection and stops the send loop. It is
// safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// sendLoop reads mono PCM buffers from the output channel, upmixes them to
// Discord's 48 kHz stereo format, extracts exact Opus frame-sized chunks,
// encodes them, and sends the packets via the voice connection. Trailing
// samples shorter than one frame are dropped when a buffer ends — the next
// buffer is an independent utterance.
func (c *Connection) sendLoop() {
	enc, err := newOpusEncoder()
	if err != nil {
		slog.Error("discord: failed to create opus encoder", "error", err)
		return
	}

	// opusFrameBytes is the exact PCM input size for one Opus frame:
	// 960 samples/channel × 2 channels × 2 bytes/sample = 3840 bytes.
	const opusFrameBytes = opusFrameSize * opusChannels * 2

	speakingSet := false
	var buf []byte

	for {
		select {
		case <-c.done:
			if speakingSet {
				c.setSpeaking(false)
			}
			return
		case pcm, ok := <-c.output:
			if !ok {
				return
			}

			if !speakingSet {
				c.setSpeaking(true)
				speakingSet = true
			}

			buf = append(buf, monoToStereo(pcm)...)

			for len(buf) >= opusFrameBytes {
				packet, eErr := enc.encode(buf[:opusFrameBytes])
				if eErr != nil {
					slog.Warn("discord: opus encode error", "error", eErr)
					buf = buf[opusFrameBytes:]
					continue
				}
				buf = buf[opusFrameBytes:]

				select {
				case c.vc.OpusSend <- packet:
				case <-c.done:
					return
				}
			}
		}
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "error", err)
	}
}

// monoToStereo duplicates each little-endian int16 sample into two channels.
func monoToStereo(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)*2)
	for i := 0; i+1 < len(pcm); i += 2 {
		out = append(out, pcm[i], pcm[i+1], pcm[i], pcm[i+1])
	}
	return out
}
