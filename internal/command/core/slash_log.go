package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
	"tsumugi/internal/storage"
)

const (
	codeLeftBlockWrapper  = "```md"
	codeRightBlockWrapper = "```"
)

var maxContentLength = bot.MaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper) - 1

type LogCommand struct{}

func (c *LogCommand) Name() string        { return "log" }
func (c *LogCommand) Description() string { return "最近実行されたコマンドの履歴を表示します。" }
func (c *LogCommand) Category() string    { return config.CategoryLog }
func (c *LogCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionAdministrator, discordgo.PermissionViewAuditLogs}
}

func (c *LogCommand) Run(_ context.Context, ic *command.SlashInteractionContext) error {
	records, err := ic.Services.Storage.FetchCommandHistory(ic.Event.GuildID)
	if err != nil {
		log.Error().Err(err).Str("guild_id", ic.Event.GuildID).Msg("failed to fetch command history")
		return bot.RespondEphemeral(ic.Session, ic.Event, "コマンド履歴の取得に失敗しました。")
	}
	if len(records) == 0 {
		return bot.RespondEphemeral(ic.Session, ic.Event, "コマンド履歴はまだありません。")
	}
	return bot.RespondEphemeral(ic.Session, ic.Event, formatHistory(records))
}

// formatHistory renders the newest records first until the message limit is reached.
func formatHistory(records []storage.CommandHistoryRecord) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-19s\t%-15s\t%-12s\t%s\n", "# Datetime", "# Username", "# Channel", "# Command"))

	for idx := len(records) - 1; idx >= 0; idx-- {
		r := records[idx]
		line := fmt.Sprintf(
			"%-19s\t%-15s\t#%-12s\t/%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			r.ChannelName,
			r.Command,
		)
		if builder.Len()+len(line) > maxContentLength {
			break
		}
		builder.WriteString(line)
	}

	return codeLeftBlockWrapper + "\n" + builder.String() + codeRightBlockWrapper
}

func init() {
	command.RegisterCommand(
		&LogCommand{},
		middleware.WithGuildOnly(),
		middleware.WithUserPermissionCheck(),
		middleware.WithCommandLogger(),
	)
}
