package media

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
	"tsumugi/internal/youtube"
)

const (
	youtubeRed    = 0xff0000
	lookupTimeout = 10 * time.Second
)

type SummarizeYouTubeCommand struct{}

func (c *SummarizeYouTubeCommand) Name() string             { return "summarize_youtube" }
func (c *SummarizeYouTubeCommand) Description() string      { return "YouTube動画のリンクから要約を生成します。" }
func (c *SummarizeYouTubeCommand) Category() string         { return config.CategoryMedia }
func (c *SummarizeYouTubeCommand) UserPermissions() []int64 { return []int64{} }

func (c *SummarizeYouTubeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "要約するYouTube動画のURL",
				Required:    true,
			},
		},
	}
}

func (c *SummarizeYouTubeCommand) Run(ctx context.Context, ic *command.SlashInteractionContext) error {
	s, e := ic.Session, ic.Event
	svc := ic.Services

	if svc.Summarizer == nil {
		return bot.RespondEphemeral(s, e, "Gemini APIが初期化されていません。管理者にお問い合わせください。")
	}
	raw := youtube.SanitizeURL(ic.StringOption("url"))
	if raw == "" {
		return bot.RespondEphemeral(s, e, "YouTube動画のURLを入力してください。")
	}
	videoID := youtube.ExtractVideoID(raw)
	if videoID == "" {
		return bot.RespondEphemeral(s, e, "有効なYouTube URLを入力してください。")
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return err
	}

	logger := log.With().Str("guild_id", e.GuildID).Str("video_id", videoID).Logger()

	var info *youtube.VideoInfo
	if svc.YouTube != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
		vi, err := svc.YouTube.Lookup(lookupCtx, videoID)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("video metadata lookup failed")
		} else {
			info = &vi
		}
	}

	watchURL := youtube.WatchURL(videoID)
	summary, err := svc.Summarizer.SummarizeVideo(ctx, watchURL)
	if err != nil {
		logger.Error().Err(err).Msg("video summary failed")
		return bot.Followup(s, e, "要約の生成に失敗しました。")
	}

	embed, rest := summaryMessages(summary, watchURL, videoID, info)
	if err := bot.FollowupEmbed(s, e, embed); err != nil {
		return err
	}
	for _, chunk := range rest {
		if err := bot.Message(s, e.ChannelID, chunk); err != nil {
			logger.Warn().Err(err).Msg("failed to deliver summary chunk")
		}
	}

	if e.GuildID != "" {
		command.SpeakReply(ctx, ic, summary)
	}
	return nil
}

// summaryMessages puts the first embed-sized part of the summary into the embed and
// splits the remainder into plain messages.
func summaryMessages(summary, watchURL, videoID string, info *youtube.VideoInfo) (*discordgo.MessageEmbed, []string) {
	embed := &discordgo.MessageEmbed{
		Title:  "YouTube動画要約",
		URL:    watchURL,
		Color:  youtubeRed,
		Footer: &discordgo.MessageEmbedFooter{Text: "動画ID: " + videoID},
	}
	if info != nil {
		if info.Title != "" {
			embed.Title = "YouTube動画要約: " + info.Title
			if r := []rune(embed.Title); len(r) > 256 {
				embed.Title = string(r[:255]) + "…"
			}
		}
		if info.Author != "" {
			embed.Author = &discordgo.MessageEmbedAuthor{Name: info.Author}
		}
	}

	parts := bot.Chunk(summary, bot.MaxEmbedDescriptionLength)
	if len(parts) == 0 {
		return embed, nil
	}
	embed.Description = parts[0]

	var rest []string
	for _, p := range parts[1:] {
		rest = append(rest, bot.Chunk(p, bot.MaxMessageLength)...)
	}
	return embed, rest
}

func init() {
	command.RegisterCommand(
		&SummarizeYouTubeCommand{},
		middleware.WithCommandLogger(),
	)
}
