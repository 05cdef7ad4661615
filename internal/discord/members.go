package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Members lists voice channel members from the gateway state cache.
func (b *Bot) Members() *Members {
	return &Members{state: b.dg.State, lookup: b.dg.User}
}

type Members struct {
	state  *discordgo.State
	lookup func(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// HumanMembers returns the ids of non-bot users connected to channelID.
// Users whose profile cannot be resolved count as human.
func (m *Members) HumanMembers(guildID, channelID string) ([]string, error) {
	type entry struct {
		userID string
		member *discordgo.Member
	}

	guild, err := m.state.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving guild: %w", err)
	}

	m.state.RLock()
	var present []entry
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			present = append(present, entry{userID: vs.UserID, member: vs.Member})
		}
	}
	m.state.RUnlock()

	humans := make([]string, 0, len(present))
	for _, p := range present {
		if !m.isBot(guildID, p.userID, p.member) {
			humans = append(humans, p.userID)
		}
	}
	return humans, nil
}

func (m *Members) isBot(guildID, userID string, member *discordgo.Member) bool {
	if member == nil {
		member, _ = m.state.Member(guildID, userID)
	}
	if member != nil && member.User != nil {
		return member.User.Bot
	}
	if m.lookup != nil {
		if u, err := m.lookup(userID); err == nil {
			return u.Bot
		}
	}
	return false
}
