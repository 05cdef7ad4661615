package core

import (
	"context"
	"fmt"

	"tsumugi/internal/bot"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/middleware"
)

type HelloCommand struct{}

func (c *HelloCommand) Name() string             { return "hello" }
func (c *HelloCommand) Description() string      { return "つむぎが挨拶を返します。" }
func (c *HelloCommand) Category() string         { return config.CategoryBasic }
func (c *HelloCommand) UserPermissions() []int64 { return []int64{} }

func (c *HelloCommand) Run(_ context.Context, ic *command.SlashInteractionContext) error {
	name := "ゲスト"
	if u := ic.User(); u != nil {
		name = u.Username
	}
	return bot.Respond(ic.Session, ic.Event, fmt.Sprintf("こんにちは、%sさん！", name))
}

func init() {
	command.RegisterCommand(
		&HelloCommand{},
		middleware.WithCommandLogger(),
	)
}
