package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
	"tsumugi/pkg/cmd"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string             { return "help" }
func (c *HelpCommand) Description() string      { return "利用可能なコマンドの一覧を表示します。" }
func (c *HelpCommand) Category() string         { return config.CategoryBasic }
func (c *HelpCommand) UserPermissions() []int64 { return []int64{} }

func (c *HelpCommand) Run(_ context.Context, ic *command.SlashInteractionContext) error {
	embed := &discordgo.MessageEmbed{
		Title:       "つむぎボット ヘルプ",
		Description: "利用可能なコマンドの一覧です。\n\n" + buildHelpByCategory(cmd.DefaultRegistry.GetAll()),
		Color:       bot.EmbedColor,
	}
	if engine := ic.Services.Engine; engine != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: engineFooter(engine)}
	}
	return bot.RespondEmbedEphemeral(ic.Session, ic.Event, embed)
}

func engineFooter(e command.EngineInfo) string {
	if !e.Ready() {
		return "VOICEVOX: 未接続"
	}
	return fmt.Sprintf("VOICEVOX %s / モデル %s / スタイル %d", e.EngineVersion(), e.ModelID(), e.StyleID())
}

func buildHelpByCategory(all []cmd.Command) string {
	categoryMap := make(map[string][]cmd.Command)
	for _, c := range all {
		cat := ""
		if meta, ok := command.Meta(c); ok {
			cat = meta.Category()
		}
		categoryMap[cat] = append(categoryMap[cat], c)
	}

	cats := make([]string, 0, len(categoryMap))
	for cat := range categoryMap {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := config.CategoryWeights[cats[i]], config.CategoryWeights[cats[j]]
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	var sb strings.Builder
	for _, cat := range cats {
		if cat != "" {
			sb.WriteString(fmt.Sprintf("**%s**\n", cat))
		}
		cmds := categoryMap[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
		for _, c := range cmds {
			sb.WriteString(fmt.Sprintf("`/%s` - %s\n", c.Name(), c.Description()))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func init() {
	command.RegisterCommand(
		&HelpCommand{},
		middleware.WithCommandLogger(),
	)
}
