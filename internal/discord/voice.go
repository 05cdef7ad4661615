package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"tsumugi/internal/audio"
	"tsumugi/internal/voice"
)

// VoiceGateway joins voice channels through the gateway session.
func (b *Bot) VoiceGateway() voice.Gateway {
	return &voiceGateway{dg: b.dg, log: b.log.With().Str("component", "voice").Logger()}
}

type voiceGateway struct {
	dg  *discordgo.Session
	log zerolog.Logger
}

func (g *voiceGateway) Connect(ctx context.Context, guildID, channelID string) (voice.Connection, error) {
	// Unresolvable permissions (incomplete state) are left for the join to report.
	if err := CheckBotVoicePermissions(g.dg, channelID); errors.Is(err, ErrMissingVoicePermissions) {
		return nil, err
	}

	type joined struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan joined, 1)
	go func() {
		vc, err := g.dg.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joined{vc, err}
	}()

	select {
	case j := <-done:
		if j.err != nil {
			if j.vc != nil {
				_ = j.vc.Disconnect()
			}
			return nil, j.err
		}
		g.log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Msg("joined voice channel")
		return &voiceConn{vc: j.vc, log: g.log.With().Str("guild_id", guildID).Logger()}, nil
	case <-ctx.Done():
		go func() {
			if j := <-done; j.vc != nil {
				_ = j.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

// voiceConn streams one audio buffer at a time into a discordgo voice connection.
type voiceConn struct {
	vc      *discordgo.VoiceConnection
	playing atomic.Bool
	log     zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) IsConnected() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

func (c *voiceConn) IsPlaying() bool { return c.playing.Load() }

func (c *voiceConn) Move(_ context.Context, channelID string) error {
	return c.vc.ChangeChannel(channelID, false, true)
}

func (c *voiceConn) Disconnect(context.Context) error {
	c.stop()
	return c.vc.Disconnect()
}

func (c *voiceConn) Play(encoded []byte, onFinished func(error)) error {
	if !c.IsConnected() {
		return voice.ErrSessionNotConnected
	}
	if !c.playing.CompareAndSwap(false, true) {
		return voice.ErrPlaybackBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		err := c.stream(ctx, encoded)
		cancel()
		c.playing.Store(false)
		if onFinished != nil {
			onFinished(err)
		}
	}()
	return nil
}

func (c *voiceConn) stream(ctx context.Context, encoded []byte) (err error) {
	enc, err := audio.NewOpusEncoder()
	if err != nil {
		return err
	}
	pcm, cleanup, err := audio.Decode(ctx, encoded)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			c.log.Warn().Err(cerr).Msg("audio decoding failed")
			if err == nil {
				err = cerr
			}
		}
	}()

	if err := c.vc.Speaking(true); err != nil {
		c.log.Debug().Err(err).Msg("failed to set speaking state")
	}
	defer func() {
		if err := c.vc.Speaking(false); err != nil {
			c.log.Debug().Err(err).Msg("failed to clear speaking state")
		}
	}()

	if err := audio.Stream(ctx, pcm, enc, c.vc.OpusSend); err != nil {
		// Stopped by Disconnect; ffmpeg was killed with the context.
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("voice stream: %w", err)
	}
	return nil
}

func (c *voiceConn) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}
