package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/storage"
)

// LogCommand records a command execution to storage, resolving channel and guild names from state.
func LogCommand(s *discordgo.Session, store *storage.Storage, guildID, channelID, userID, username, commandName, param string) error {
	channelName := ""
	if channel, err := s.State.Channel(channelID); err == nil {
		channelName = channel.Name
	} else if channel, err := s.Channel(channelID); err == nil {
		channelName = channel.Name
	} else {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("failed to fetch channel")
	}

	guildName := ""
	if guild, err := s.State.Guild(guildID); err == nil {
		guildName = guild.Name
	} else if guild, err := s.Guild(guildID); err == nil {
		guildName = guild.Name
	} else {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to fetch guild")
	}

	return store.AppendCommandToHistory(guildID, storage.CommandHistoryRecord{
		ChannelID:   channelID,
		ChannelName: channelName,
		GuildName:   guildName,
		UserID:      userID,
		Username:    username,
		Command:     commandName,
		Param:       param,
		Datetime:    time.Now(),
	})
}
