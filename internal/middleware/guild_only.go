package middleware

import (
	"context"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/pkg/cmd"
)

const guildOnlyNotice = "このコマンドはサーバー内でのみ使用できます。"

// WithGuildOnly wraps a command to enforce guild-only access
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if v, ok := inv.Data.(*command.SlashInteractionContext); ok && v.Event.GuildID == "" {
				return bot.RespondEphemeral(v.Session, v.Event, guildOnlyNotice)
			}
			return c.Run(ctx, inv)
		})
	}
}
