package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCommand struct {
	name string
	ran  []string
}

func (e *echoCommand) Name() string        { return e.name }
func (e *echoCommand) Description() string { return "echo " + e.name }
func (e *echoCommand) Run(_ context.Context, inv *Invocation) error {
	e.ran = append(e.ran, inv.Args...)
	return nil
}

func tagging(tag string, trace *[]string) Middleware {
	return func(c Command) Command {
		return Wrap(c, func(ctx context.Context, inv *Invocation) error {
			*trace = append(*trace, tag)
			return c.Run(ctx, inv)
		})
	}
}

func TestApplyOrderAndRoot(t *testing.T) {
	var trace []string
	inner := &echoCommand{name: "hello"}

	c := Apply(inner, tagging("first", &trace), tagging("second", &trace))
	require.NoError(t, c.Run(context.Background(), &Invocation{Args: []string{"x"}}))

	assert.Equal(t, []string{"second", "first"}, trace, "last middleware is outermost")
	assert.Equal(t, []string{"x"}, inner.ran)
	assert.Equal(t, "hello", c.Name())
	assert.Same(t, inner, Root(c))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoCommand{name: "speak"})
	r.Register(&echoCommand{name: "ask"})
	r.Register(&echoCommand{name: "join"})

	assert.Nil(t, r.Get("missing"))
	require.NotNil(t, r.Get("join"))

	var names []string
	for _, c := range r.GetAll() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"ask", "join", "speak"}, names)
}
