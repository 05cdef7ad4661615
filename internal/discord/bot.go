// Package discord runs the bot on the Discord gateway and implements the voice
// package's gateway, member and notification interfaces with discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/voice"
	"tsumugi/pkg/cmd"
	"tsumugi/pkg/util"
)

const commandSyncWorkers = 2

// Bot is a Discord bot
type Bot struct {
	dg        *discordgo.Session
	cfg       *config.Config
	services  *command.Services
	autoLeave *voice.AutoLeave
	ctx       context.Context
	ready     atomic.Bool
	log       zerolog.Logger
}

// New creates the session without connecting so the voice adapters can be wired first.
func New(cfg *config.Config, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages
	dg.StateEnabled = true

	return &Bot{dg: dg, cfg: cfg, ctx: context.Background(), log: logger}, nil
}

// UserID is the bot's own user id, empty until the gateway is ready.
func (b *Bot) UserID() string {
	if b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

// Ready reports whether the gateway session is established.
func (b *Bot) Ready() bool { return b.ready.Load() }

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context, services *command.Services, autoLeave *voice.AutoLeave) error {
	b.ctx = ctx
	b.services = services
	b.autoLeave = autoLeave

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)
	b.dg.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) { b.ready.Store(false) })

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing gateway")
	b.ready.Store(false)
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)

	var guildIDs []string
	for _, g := range r.Guilds {
		if !b.leaveIfBlacklisted(s, g.ID, g.Name) {
			guildIDs = append(guildIDs, g.ID)
		}
	}

	if b.cfg.InitSlashCommands {
		err := util.Parallel(b.ctx, guildIDs, commandSyncWorkers, func(_ context.Context, guildID string) error {
			return b.registerCommands(guildID)
		})
		if err != nil {
			b.log.Error().Err(err).Msg("failed to register slash commands")
		}
	} else {
		b.log.Info().Msg("registering slash commands skipped")
	}

	b.log.Info().Str("user", r.User.Username).Int("guilds", len(guildIDs)).Msg("discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Unavailable {
		return
	}
	if b.leaveIfBlacklisted(s, g.ID, g.Name) {
		return
	}
	if !b.cfg.InitSlashCommands {
		return
	}
	if err := b.registerCommands(g.ID); err != nil {
		b.log.Error().Err(err).Str("guild_id", g.ID).Msg("failed to register commands for guild")
	}
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID, name string) bool {
	if !b.cfg.IsGuildBlacklisted(guildID) {
		return false
	}
	b.log.Info().Str("guild_id", guildID).Str("guild", name).Msg("leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to leave guild")
	}
	return true
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != discordgo.ChatApplicationCommand {
		return
	}

	c, ok := command.Lookup(data.Name)
	if !ok {
		b.log.Warn().Str("command", data.Name).Msg("unknown command")
		return
	}

	ic := &command.SlashInteractionContext{Session: s, Event: i, Services: b.services}
	if err := c.Run(b.ctx, &cmd.Invocation{Data: ic}); err != nil {
		b.log.Error().Err(err).Str("command", data.Name).Str("guild_id", i.GuildID).Msg("error running slash command")
		b.reportFailure(s, i, err)
	}
}

// reportFailure tells the user about an error the command could not answer itself.
func (b *Bot) reportFailure(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	embed := &discordgo.MessageEmbed{
		Description: "コマンドの実行中にエラーが発生しました。",
		Color:       bot.EmbedColor,
	}
	if rerr := bot.RespondEmbedEphemeral(s, i, embed); rerr != nil {
		// Already acknowledged; a followup is the only way left.
		var restErr *discordgo.RESTError
		if errors.As(rerr, &restErr) {
			_ = bot.FollowupEmbedEphemeral(s, i, embed)
		}
	}
}

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if b.autoLeave == nil || vsu.VoiceState == nil {
		return
	}
	ev := voice.MembershipEvent{
		GuildID:        vsu.GuildID,
		UserID:         vsu.UserID,
		AfterChannelID: vsu.ChannelID,
	}
	if vsu.BeforeUpdate != nil {
		ev.BeforeChannelID = vsu.BeforeUpdate.ChannelID
	}
	b.autoLeave.HandleVoiceStateUpdate(b.ctx, ev)
}
