// Package cmd is a transport-agnostic command core: a command has a name, a
// description and Run(ctx, invocation). Registration and dispatch for a given
// transport (Discord slash commands here) live in adapters.
package cmd

import "context"

// Invocation carries what a runner passes to a command. Adapters put their own
// context (session, event, services) in Data.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
