package voice

import (
	"context"
	"errors"
	"sync"
)

type fakeConn struct {
	mu          sync.Mutex
	channelID   string
	connected   bool
	playing     bool
	holdPlay    bool
	playErr     error
	played      []string
	disconnects int
	moves       int
	onPlay      func(n int)
}

func newFakeConn(channelID string) *fakeConn {
	return &fakeConn{channelID: channelID, connected: true}
}

func (c *fakeConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *fakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *fakeConn) Move(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
	c.moves++
	return nil
}

func (c *fakeConn) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
	return nil
}

func (c *fakeConn) Play(audio []byte, onFinished func(error)) error {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return ErrPlaybackBusy
	}
	if c.playErr != nil {
		c.mu.Unlock()
		return c.playErr
	}
	c.played = append(c.played, string(audio))
	n := len(c.played)
	c.playing = c.holdPlay
	hook := c.onPlay
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if onFinished != nil && !c.holdPlay {
		onFinished(nil)
	}
	return nil
}

func (c *fakeConn) setPlaying(v bool) {
	c.mu.Lock()
	c.playing = v
	c.mu.Unlock()
}

func (c *fakeConn) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *fakeConn) snapshot() (played []string, disconnects int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.played...), c.disconnects
}

type fakeGateway struct {
	mu       sync.Mutex
	conns    []*fakeConn
	connects int
	err      error
	prepare  func(*fakeConn)
}

func (g *fakeGateway) Connect(_ context.Context, _ string, channelID string) (Connection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects++
	if g.err != nil {
		return nil, g.err
	}
	c := newFakeConn(channelID)
	if g.prepare != nil {
		g.prepare(c)
	}
	g.conns = append(g.conns, c)
	return c, nil
}

func (g *fakeGateway) last() *fakeConn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conns[len(g.conns)-1]
}

type fakeMembers struct {
	mu      sync.Mutex
	humans  map[string][]string
	err     error
	lookups int
}

func (f *fakeMembers) HumanMembers(_, channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.humans[channelID], nil
}

type fakeSynth struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
}

func (s *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if err, ok := s.failOn[text]; ok {
		return nil, err
	}
	return []byte(text), nil
}

func (s *fakeSynth) callsSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type sentMessage struct {
	channelID string
	text      string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, channelID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{channelID: channelID, text: message})
	return n.err
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

var errBoom = errors.New("boom")
