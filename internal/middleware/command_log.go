package middleware

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/metrics"
	"tsumugi/pkg/cmd"
)

// WithCommandLogger counts every run and records guild commands in the history.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)
			metrics.RecordCommand(c.Name(), err)

			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return err
			}

			logger := log.With().
				Str("command", c.Name()).
				Str("guild_id", v.Event.GuildID).
				Str("user_id", v.UserID()).
				Logger()
			if err != nil {
				logger.Warn().Err(err).Msg("command failed")
			} else {
				logger.Debug().Msg("command executed")
			}

			if v.Event.GuildID == "" || v.Services == nil || v.Services.Storage == nil {
				return err
			}
			user := resolveUser(v.Event)
			if e := bot.LogCommand(v.Session, v.Services.Storage, v.Event.GuildID, v.Event.ChannelID,
				user.ID, user.Username, c.Name(), commandParam(v.Event)); e != nil {
				logger.Warn().Err(e).Msg("failed to log command")
			}
			return err
		})
	}
}

func resolveUser(e *discordgo.InteractionCreate) *discordgo.User {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User
	}
	if e.User != nil {
		return e.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}

// commandParam joins the string options of a slash command.
func commandParam(e *discordgo.InteractionCreate) string {
	if e.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	var parts []string
	for _, o := range e.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionString {
			parts = append(parts, o.StringValue())
		}
	}
	return strings.Join(parts, " ")
}
