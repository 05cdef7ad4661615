package voicechat

import (
	"context"

	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
)

type LeaveCommand struct{}

func (c *LeaveCommand) Name() string             { return "leave" }
func (c *LeaveCommand) Description() string      { return "つむぎをボイスチャンネルから切断します。" }
func (c *LeaveCommand) Category() string         { return config.CategoryVoice }
func (c *LeaveCommand) UserPermissions() []int64 { return []int64{} }

func (c *LeaveCommand) Run(ctx context.Context, ic *command.SlashInteractionContext) error {
	left, err := ic.Services.Voice.Leave(ctx, ic.Event.GuildID)
	if err != nil {
		// The session is gone either way.
		log.Warn().Err(err).Str("guild_id", ic.Event.GuildID).Msg("voice disconnect reported an error")
	}
	if !left {
		return bot.RespondEphemeral(ic.Session, ic.Event, "つむぎはボイスチャンネルに参加していません。")
	}
	return bot.Respond(ic.Session, ic.Event, "ボイスチャンネルから切断しました。")
}

func init() {
	command.RegisterCommand(
		&LeaveCommand{},
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(),
	)
}
