package voice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tsumugi/internal/metrics"
)

const autoLeaveNotice = "ボイスチャンネルに誰もいなくなったため、切断しました。"

// MembershipEvent is a voice state change of one user.
type MembershipEvent struct {
	GuildID         string
	UserID          string
	BeforeChannelID string
	AfterChannelID  string
}

// AutoLeave disconnects a guild's session once its channel has no human members left.
type AutoLeave struct {
	sessions *Manager
	members  MemberLister
	notifier Notifier
	botID    func() string
	log      zerolog.Logger
}

// NewAutoLeave builds the watcher. botID returns the bot's own user id; it is read
// per event because it is only known after the gateway is ready.
func NewAutoLeave(sessions *Manager, members MemberLister, notifier Notifier, botID func() string, logger zerolog.Logger) *AutoLeave {
	return &AutoLeave{
		sessions: sessions,
		members:  members,
		notifier: notifier,
		botID:    botID,
		log:      logger,
	}
}

// HandleVoiceStateUpdate reports whether the event caused a disconnect. The bot's
// own events only matter when they show it left voice (kicked or dropped), which
// removes the guild's session.
func (a *AutoLeave) HandleVoiceStateUpdate(ctx context.Context, ev MembershipEvent) bool {
	logger := a.log.With().Str("guild_id", ev.GuildID).Str("user_id", ev.UserID).Logger()

	if a.botID != nil && ev.UserID == a.botID() {
		if ev.AfterChannelID == "" {
			a.dropSession(ctx, ev.GuildID, ev.BeforeChannelID, logger)
		}
		return false
	}

	var (
		disconnected  bool
		notifyChannel string
	)
	a.sessions.WithGuildLock(ev.GuildID, func() {
		s := a.sessions.get(ev.GuildID)
		if s == nil {
			return
		}
		// discordgo may be reconnecting the voice websocket.
		if !s.conn.IsConnected() {
			logger.Debug().Msg("voice connection not ready, skipping membership check")
			return
		}

		channelID := s.conn.ChannelID()
		humans, err := a.members.HumanMembers(ev.GuildID, channelID)
		if err != nil {
			logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to list voice channel members")
			return
		}
		if len(humans) > 0 {
			return
		}

		notifyChannel = a.sessions.NotifyChannel(ev.GuildID)
		if _, err := a.sessions.leaveLocked(ctx, ev.GuildID); err != nil {
			logger.Warn().Err(err).Msg("auto-leave disconnect returned an error")
		}
		disconnected = true
	})

	if !disconnected {
		return false
	}

	metrics.RecordAutoLeave()
	logger.Info().Msg("left empty voice channel")

	if a.notifier != nil && notifyChannel != "" {
		if err := a.notifier.Send(ctx, notifyChannel, autoLeaveNotice); err != nil {
			logger.Warn().Err(fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, err)).Str("channel_id", notifyChannel).Msg("auto-leave notice not delivered")
		}
	}
	return true
}

// dropSession removes the guild's session unless the event was about another channel.
func (a *AutoLeave) dropSession(ctx context.Context, guildID, fromChannelID string, logger zerolog.Logger) {
	a.sessions.WithGuildLock(guildID, func() {
		s := a.sessions.get(guildID)
		if s == nil {
			return
		}
		if fromChannelID != "" && fromChannelID != s.conn.ChannelID() {
			return
		}
		logger.Info().Msg("bot left voice, removing session")
		if _, err := a.sessions.leaveLocked(ctx, guildID); err != nil {
			logger.Debug().Err(err).Msg("session disconnect after bot left voice")
		}
	})
}
