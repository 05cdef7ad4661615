package music

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
	"tsumugi/internal/spotify"
)

const spotifyGreen = 0x1db954

type SearchSpotifyCommand struct{}

func (c *SearchSpotifyCommand) Name() string             { return "search_spotify" }
func (c *SearchSpotifyCommand) Description() string      { return "Spotifyで曲を検索します。" }
func (c *SearchSpotifyCommand) Category() string         { return config.CategoryMusic }
func (c *SearchSpotifyCommand) UserPermissions() []int64 { return []int64{} }

func (c *SearchSpotifyCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "検索する曲名やアーティスト名",
				Required:    true,
			},
		},
	}
}

func (c *SearchSpotifyCommand) Run(ctx context.Context, ic *command.SlashInteractionContext) error {
	s, e := ic.Session, ic.Event

	if ic.Services.Spotify == nil {
		return bot.RespondEphemeral(s, e, "Spotify APIが初期化されていません。管理者にお問い合わせください。")
	}
	query := strings.TrimSpace(ic.StringOption("query"))
	if query == "" {
		return bot.RespondEphemeral(s, e, "検索する曲名やアーティスト名を入力してください。")
	}

	if err := bot.RespondDeferredEphemeral(s, e); err != nil {
		return err
	}

	tracks, err := ic.Services.Spotify.SearchTracks(ctx, query, spotify.DefaultLimit)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("spotify search failed")
		return bot.FollowupEphemeral(s, e, "Spotifyでの検索中にエラーが発生しました。")
	}
	if len(tracks) == 0 {
		return bot.FollowupEphemeral(s, e, "曲が見つかりませんでした。")
	}
	return bot.FollowupEmbed(s, e, resultsEmbed(query, tracks))
}

func resultsEmbed(query string, tracks []spotify.Track) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Spotify検索結果: '%s'", query),
		Color: spotifyGreen,
	}
	for i, t := range tracks {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. %s - %s", i+1, t.Name, t.ArtistLine()),
			Value: fmt.Sprintf("アルバム: %s\n[Spotifyで聴く](%s)", t.Album, t.URL),
		})
	}
	return embed
}

func init() {
	command.RegisterCommand(
		&SearchSpotifyCommand{},
		middleware.WithCommandLogger(),
	)
}
