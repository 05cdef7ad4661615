package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"tsumugi/pkg/cmd"
)

// SlashInteractionContext is what the Discord runtime hands to a slash command.
type SlashInteractionContext struct {
	Session  *discordgo.Session
	Event    *discordgo.InteractionCreate
	Services *Services
}

// UserID returns the invoking user's id in a guild or DM.
func (c *SlashInteractionContext) UserID() string {
	if u := c.User(); u != nil {
		return u.ID
	}
	return ""
}

func (c *SlashInteractionContext) User() *discordgo.User {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User
	}
	return c.Event.User
}

// StringOption returns the named string option, or "".
func (c *SlashInteractionContext) StringOption(name string) string {
	for _, o := range c.Event.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// DiscordMeta lets middleware read command metadata through wrappers.
type DiscordMeta interface {
	Category() string
	UserPermissions() []int64
}

// DiscordCommand is implemented by every slash command of the bot.
type DiscordCommand interface {
	Name() string
	Description() string
	Category() string
	UserPermissions() []int64
	Run(ctx context.Context, c *SlashInteractionContext) error
}

// DiscordAdapter lets a DiscordCommand live in the cmd registry.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string             { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string      { return a.Cmd.Description() }
func (a *DiscordAdapter) Category() string         { return a.Cmd.Category() }
func (a *DiscordAdapter) UserPermissions() []int64 { return a.Cmd.UserPermissions() }

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, ok := inv.Data.(*SlashInteractionContext)
	if !ok {
		return fmt.Errorf("command %s: unsupported invocation data %T", a.Cmd.Name(), inv.Data)
	}
	return a.Cmd.Run(ctx, sc)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return &discordgo.ApplicationCommand{
		Name:        a.Cmd.Name(),
		Description: a.Cmd.Description(),
	}
}

// RegisterCommand adds discordCmd to the default registry wrapped in mws.
func RegisterCommand(discordCmd DiscordCommand, mws ...cmd.Middleware) {
	cmd.DefaultRegistry.Register(cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...))
}

// Lookup finds a registered command by name.
func Lookup(name string) (cmd.Command, bool) {
	c := cmd.DefaultRegistry.Get(name)
	return c, c != nil
}

// Meta returns the metadata of a registered command, looking through middleware.
func Meta(c cmd.Command) (DiscordMeta, bool) {
	m, ok := cmd.Root(c).(DiscordMeta)
	return m, ok
}
