// Package voice owns the per-guild voice sessions and everything that drives them:
// the session table, the speech playback orchestrator and the auto-leave watcher.
//
// The package only talks to the outside world through the interfaces below; the
// discord package provides the real implementations.
package voice

import "context"

// Connection is one live voice connection.
type Connection interface {
	ChannelID() string
	IsConnected() bool
	IsPlaying() bool
	Move(ctx context.Context, channelID string) error
	Disconnect(ctx context.Context) error
	// Play starts playback in the background and returns immediately.
	// onFinished is called once when playback ends.
	Play(audio []byte, onFinished func(error)) error
}

// Gateway opens voice connections.
type Gateway interface {
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// MemberLister reports the non-bot users currently in a voice channel.
type MemberLister interface {
	HumanMembers(guildID, channelID string) ([]string, error)
}

// Synthesizer turns one text segment into one encoded audio buffer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Notifier sends a text message to a channel. Delivery is best-effort.
type Notifier interface {
	Send(ctx context.Context, channelID, message string) error
}
