package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsumugi/internal/command"
	"tsumugi/pkg/cmd"
)

type stubCommand struct {
	perms []int64
	err   error
	runs  int
}

func (s *stubCommand) Name() string             { return "stub" }
func (s *stubCommand) Description() string      { return "stub command" }
func (s *stubCommand) Category() string         { return "test" }
func (s *stubCommand) UserPermissions() []int64 { return s.perms }
func (s *stubCommand) Run(context.Context, *command.SlashInteractionContext) error {
	s.runs++
	return s.err
}

func guildInvocation(guildID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *cmd.Invocation {
	return &cmd.Invocation{Data: &command.SlashInteractionContext{
		Event: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member:  &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}},
			Data:    discordgo.ApplicationCommandInteractionData{Name: "stub", Options: opts},
		}},
	}}
}

func TestGuildOnlyRunsInGuild(t *testing.T) {
	stub := &stubCommand{}
	c := cmd.Apply(&command.DiscordAdapter{Cmd: stub}, WithGuildOnly())

	require.NoError(t, c.Run(context.Background(), guildInvocation("g1")))
	assert.Equal(t, 1, stub.runs)
}

func TestCommandLoggerPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	stub := &stubCommand{err: boom}
	c := cmd.Apply(&command.DiscordAdapter{Cmd: stub}, WithCommandLogger())

	err := c.Run(context.Background(), guildInvocation("g1"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, stub.runs)
}

func TestPermissionCheckSkipsCommandsWithoutRequirements(t *testing.T) {
	stub := &stubCommand{}
	c := cmd.Apply(&command.DiscordAdapter{Cmd: stub}, WithUserPermissionCheck())

	require.NoError(t, c.Run(context.Background(), guildInvocation("g1")))
	assert.Equal(t, 1, stub.runs)
}

func TestPermissionCheckPassesWithGrantedPermission(t *testing.T) {
	stub := &stubCommand{perms: []int64{discordgo.PermissionViewAuditLogs}}
	c := cmd.Apply(&command.DiscordAdapter{Cmd: stub}, WithUserPermissionCheck())

	inv := guildInvocation("g1")
	inv.Data.(*command.SlashInteractionContext).Event.Member.Permissions = discordgo.PermissionViewAuditLogs
	require.NoError(t, c.Run(context.Background(), inv))
	assert.Equal(t, 1, stub.runs)
}

func TestHasAnyPermission(t *testing.T) {
	required := []int64{discordgo.PermissionManageGuild, discordgo.PermissionViewAuditLogs}

	assert.True(t, HasAnyPermission(discordgo.PermissionAdministrator, required))
	assert.True(t, HasAnyPermission(discordgo.PermissionViewAuditLogs|discordgo.PermissionSendMessages, required))
	assert.False(t, HasAnyPermission(discordgo.PermissionSendMessages, required))
}

func TestDeniedMessage(t *testing.T) {
	msg := DeniedMessage([]int64{discordgo.PermissionManageGuild, 1 << 60})
	assert.Contains(t, msg, "`Manage Server`, `0x1000000000000000`")
}

func TestCommandParam(t *testing.T) {
	inv := guildInvocation("g1",
		&discordgo.ApplicationCommandInteractionDataOption{Name: "query", Type: discordgo.ApplicationCommandOptionString, Value: "hello"},
		&discordgo.ApplicationCommandInteractionDataOption{Name: "n", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
	)
	assert.Equal(t, "hello", commandParam(inv.Data.(*command.SlashInteractionContext).Event))
}
