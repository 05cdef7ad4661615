package voicechat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
	"tsumugi/internal/voice"
)

const (
	notConnectedNotice = "つむぎがボイスチャンネルに参加していません。`/join`コマンドで参加させてください。"
	busyNotice         = "現在他の音声を再生中です。少し待ってから再度お試しください。"
	quotePreviewRunes  = 100
)

type SpeakCommand struct{}

func (c *SpeakCommand) Name() string             { return "speak" }
func (c *SpeakCommand) Description() string      { return "指定されたテキストを読み上げます。" }
func (c *SpeakCommand) Category() string         { return config.CategoryVoice }
func (c *SpeakCommand) UserPermissions() []int64 { return []int64{} }

func (c *SpeakCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "読み上げるテキスト",
				Required:    true,
			},
		},
	}
}

func (c *SpeakCommand) Run(ctx context.Context, ic *command.SlashInteractionContext) error {
	s, e := ic.Session, ic.Event
	svc := ic.Services

	if !svc.Voice.IsConnected(e.GuildID) {
		return bot.RespondEphemeral(s, e, notConnectedNotice)
	}
	text := strings.TrimSpace(ic.StringOption("text"))
	if text == "" {
		return bot.RespondEphemeral(s, e, "読み上げるテキストを入力してください。")
	}

	release, ok := svc.InFlight.TryStart(e.GuildID)
	if !ok {
		return bot.RespondEphemeral(s, e, busyNotice)
	}
	defer release()
	if svc.Voice.IsBusy(e.GuildID) {
		return bot.RespondEphemeral(s, e, busyNotice)
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return err
	}
	svc.Voice.SetNotifyChannel(e.GuildID, e.ChannelID)
	if err := bot.Followup(s, e, fmt.Sprintf("「%s」を読み上げます...", quotePreview(text))); err != nil {
		log.Warn().Err(err).Str("guild_id", e.GuildID).Msg("failed to send speak followup")
	}

	res, err := svc.Speaker.Speak(ctx, voice.SpeakRequest{
		GuildID:       e.GuildID,
		TextChannelID: e.ChannelID,
		Text:          text,
	})
	if msg := speakOutcome(res, err); msg != "" {
		return bot.Followup(s, e, msg)
	}
	return nil
}

// speakOutcome returns the message to post after a sequence, or "" when nothing
// needs to be said. Skipped segments already produced their own notices.
func speakOutcome(res voice.SpeakResult, err error) string {
	switch {
	case errors.Is(err, voice.ErrNoActiveSession):
		return notConnectedNotice
	case errors.Is(err, voice.ErrEngineNotReady):
		return "音声エンジンの準備ができていません。しばらくしてから再度お試しください。"
	case errors.Is(err, voice.ErrAborted):
		return ""
	case err != nil:
		return "音声の再生に失敗しました。"
	case res.Segments > 0 && res.Played == 0:
		return "音声の生成に失敗しました。"
	}
	return ""
}

func quotePreview(text string) string {
	r := []rune(text)
	if len(r) <= quotePreviewRunes {
		return text
	}
	return string(r[:quotePreviewRunes]) + "…"
}

func init() {
	command.RegisterCommand(
		&SpeakCommand{},
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(),
	)
}
