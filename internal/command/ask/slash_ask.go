package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/ai"
	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
)

const notConfiguredNotice = "Gemini APIが初期化されていません。管理者にお問い合わせください。"

type AskCommand struct{}

func (c *AskCommand) Name() string             { return "ask" }
func (c *AskCommand) Description() string      { return "つむぎに質問し、応答をテキストと音声で返します。" }
func (c *AskCommand) Category() string         { return config.CategoryAI }
func (c *AskCommand) UserPermissions() []int64 { return []int64{} }

func (c *AskCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "つむぎへの質問内容",
				Required:    true,
			},
		},
	}
}

func (c *AskCommand) Run(ctx context.Context, ic *command.SlashInteractionContext) error {
	s, e := ic.Session, ic.Event
	svc := ic.Services

	if svc.AI == nil {
		return bot.RespondEphemeral(s, e, notConfiguredNotice)
	}
	query := strings.TrimSpace(ic.StringOption("query"))
	if query == "" {
		return bot.RespondEphemeral(s, e, "質問内容を入力してください。")
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return err
	}

	answer, err := svc.AI.Generate(ctx, ai.PersonaPrompt(svc.Config.GeminiPersona, query))
	if err != nil {
		log.Error().Err(err).Str("guild_id", e.GuildID).Msg("gemini request failed")
		return bot.Followup(s, e, failureMessage(err))
	}

	chunks := bot.Chunk(answer, bot.MaxMessageLength)
	for i, chunk := range chunks {
		if i == 0 {
			err = bot.Followup(s, e, chunk)
		} else {
			err = bot.Message(s, e.ChannelID, chunk)
		}
		if err != nil {
			log.Warn().Err(err).Int("chunk", i).Str("guild_id", e.GuildID).Msg("failed to deliver answer chunk")
		}
	}

	if e.GuildID != "" {
		command.SpeakReply(ctx, ic, answer)
	}
	return nil
}

func failureMessage(err error) string {
	var blocked *ai.BlockedError
	switch {
	case errors.As(err, &blocked):
		return fmt.Sprintf("ごめんなさい、その質問にはお答えできません。(理由: %s)", blocked.Reason)
	case errors.Is(err, ai.ErrEmptyResponse):
		return "つむぎから応答がありませんでした。"
	default:
		return "申し訳ありません、処理中にエラーが発生しました。"
	}
}

func init() {
	command.RegisterCommand(
		&AskCommand{},
		middleware.WithCommandLogger(),
	)
}
