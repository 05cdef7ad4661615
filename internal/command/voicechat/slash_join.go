package voicechat

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
	"tsumugi/internal/voice"
)

type JoinCommand struct{}

func (c *JoinCommand) Name() string        { return "join" }
func (c *JoinCommand) Description() string { return "つむぎをボイスチャンネルに参加させます。" }
func (c *JoinCommand) Category() string    { return config.CategoryVoice }
func (c *JoinCommand) UserPermissions() []int64 {
	return []int64{}
}

func (c *JoinCommand) Run(ctx context.Context, ic *command.SlashInteractionContext) error {
	s, e := ic.Session, ic.Event
	channelID, err := command.UserVoiceChannel(s, e.GuildID, ic.UserID())
	if err != nil {
		return bot.RespondEphemeral(s, e, "あなたが先にボイスチャンネルに参加してください。")
	}
	name := command.ChannelName(s, channelID)

	manager := ic.Services.Voice
	if manager.IsConnected(e.GuildID) && manager.ChannelID(e.GuildID) == channelID {
		manager.SetNotifyChannel(e.GuildID, e.ChannelID)
		return bot.RespondEphemeral(s, e, fmt.Sprintf("既に %s に接続しています。", name))
	}

	// Voice handshakes can outlast the interaction deadline.
	if err := bot.RespondDeferred(s, e); err != nil {
		return err
	}

	result, err := manager.Join(ctx, e.GuildID, channelID, e.ChannelID)
	if err != nil {
		log.Error().Err(err).Str("guild_id", e.GuildID).Str("channel_id", channelID).Msg("failed to join voice channel")
		return bot.Followup(s, e, "ボイスチャンネルへの接続に失敗しました。")
	}
	return bot.Followup(s, e, joinReply(result, name))
}

func joinReply(result voice.JoinResult, channelName string) string {
	switch result {
	case voice.JoinMoved:
		return fmt.Sprintf("%s に移動しました。", channelName)
	case voice.JoinAlreadyConnected:
		return fmt.Sprintf("既に %s に接続しています。", channelName)
	default:
		return fmt.Sprintf("%s に接続しました。", channelName)
	}
}

func (c *JoinCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func init() {
	command.RegisterCommand(
		&JoinCommand{},
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(),
	)
}

