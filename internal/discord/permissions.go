package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var ErrMissingVoicePermissions = errors.New("missing connect or speak permission in voice channel")

const voicePermissions = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak

// CheckBotVoicePermissions reports whether the bot may connect and speak in a channel.
func CheckBotVoicePermissions(s *discordgo.Session, channelID string) error {
	perms, err := s.State.UserChannelPermissions(s.State.User.ID, channelID)
	if err != nil {
		return fmt.Errorf("failed to resolve permissions for %s: %w", channelID, err)
	}
	if !hasVoicePermissions(perms) {
		return ErrMissingVoicePermissions
	}
	return nil
}

func hasVoicePermissions(perms int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 || perms&voicePermissions == voicePermissions
}
