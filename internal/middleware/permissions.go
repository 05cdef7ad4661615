package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/pkg/cmd"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:        "Administrator",
	discordgo.PermissionManageGuild:          "Manage Server",
	discordgo.PermissionManageChannels:       "Manage Channels",
	discordgo.PermissionManageMessages:       "Manage Messages",
	discordgo.PermissionViewAuditLogs:        "View Audit Logs",
	discordgo.PermissionSendMessages:         "Send Messages",
	discordgo.PermissionEmbedLinks:           "Embed Links",
	discordgo.PermissionVoiceConnect:         "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:           "Speak",
	discordgo.PermissionVoiceMoveMembers:     "Move Members",
	discordgo.PermissionVoicePrioritySpeaker: "Priority Speaker",
}

// WithUserPermissionCheck denies a command unless the member holds at least one of
// its UserPermissions. Administrators and the configured developer always pass.
func WithUserPermissionCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return c.Run(ctx, inv)
			}

			meta, ok := command.Meta(c)
			if !ok || len(meta.UserPermissions()) == 0 {
				return c.Run(ctx, inv)
			}
			m := v.Event.Member
			if v.Event.GuildID == "" || m == nil || m.User == nil {
				return c.Run(ctx, inv)
			}
			if v.Services != nil && v.Services.Config != nil && config.IsDeveloper(v.Services.Config, m.User.ID) {
				return c.Run(ctx, inv)
			}

			// Interaction payloads carry the member's resolved channel permissions.
			memberPerms := m.Permissions
			if memberPerms == 0 {
				p, err := v.Session.UserChannelPermissions(m.User.ID, v.Event.ChannelID)
				if err != nil {
					return fmt.Errorf("failed to get user permissions: %w", err)
				}
				memberPerms = p
			}
			if !HasAnyPermission(memberPerms, meta.UserPermissions()) {
				return bot.RespondEmbedEphemeral(v.Session, v.Event, &discordgo.MessageEmbed{
					Description: DeniedMessage(meta.UserPermissions()),
					Color:       bot.EmbedColor,
				})
			}
			return c.Run(ctx, inv)
		})
	}
}

// HasAnyPermission reports whether perms grants administrator or one of required.
func HasAnyPermission(perms int64, required []int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, p := range required {
		if perms&p != 0 {
			return true
		}
	}
	return false
}

func DeniedMessage(required []int64) string {
	allowed := make([]string, 0, len(required))
	for _, p := range required {
		name := PermissionNames[p]
		if name == "" {
			name = fmt.Sprintf("0x%x", p)
		}
		allowed = append(allowed, name)
	}
	return fmt.Sprintf(
		"このコマンドを実行するには、次のいずれかの権限が必要です:\n`%s`",
		strings.Join(allowed, "`, `"),
	)
}
