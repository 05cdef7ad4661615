package command

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/voice"
)

var ErrUserNotInVoice = errors.New("user not in any voice channel")

const busyReplyNotice = "他の読み上げが進行中のため、音声での応答はスキップしました。"

// UserVoiceChannel finds the voice channel the user is currently in.
func UserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", err
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}
	return "", ErrUserNotInVoice
}

// ChannelName returns the cached channel name, or the id when unknown.
func ChannelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	return channelID
}

// SpeakReply reads text aloud when the guild has a voice session. A guild that is
// already speaking gets a short notice in the text channel instead.
func SpeakReply(ctx context.Context, c *SlashInteractionContext, text string) {
	svc := c.Services
	guildID := c.Event.GuildID
	if svc.Speaker == nil || svc.Voice == nil || !svc.Voice.IsConnected(guildID) {
		return
	}

	release, ok := svc.InFlight.TryStart(guildID)
	if !ok || svc.Voice.IsBusy(guildID) {
		if ok {
			release()
		}
		if err := bot.Message(c.Session, c.Event.ChannelID, busyReplyNotice); err != nil {
			log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to send busy notice")
		}
		return
	}
	defer release()

	res, err := svc.Speaker.Speak(ctx, voice.SpeakRequest{
		GuildID:       guildID,
		TextChannelID: c.Event.ChannelID,
		Text:          text,
	})
	logger := log.With().Str("guild_id", guildID).Str("sequence_id", res.SequenceID).Logger()
	if err != nil {
		logger.Info().Err(err).Str("state", res.State.String()).Msg("spoken reply stopped")
		return
	}
	logger.Debug().Int("played", res.Played).Int("skipped", res.Skipped).Msg("spoken reply finished")
}
