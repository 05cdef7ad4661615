package voice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"tsumugi/internal/metrics"
)

type JoinResult int

const (
	JoinConnected JoinResult = iota
	JoinMoved
	JoinAlreadyConnected
)

func (r JoinResult) String() string {
	switch r {
	case JoinConnected:
		return "connected"
	case JoinMoved:
		return "moved"
	case JoinAlreadyConnected:
		return "already_connected"
	default:
		return "unknown"
	}
}

type session struct {
	conn          Connection
	notifyChannel string

	// held while checking and starting playback
	playMu sync.Mutex
}

// Manager is the single owner of the guild -> voice session table.
//
// Lock order is guild lock, then mu. mu is never held across a call into a Connection
// except from the *Locked helpers, which run under the guild lock.
type Manager struct {
	gateway Gateway
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	locks    map[string]*sync.Mutex
}

func NewManager(gateway Gateway, logger zerolog.Logger) *Manager {
	return &Manager{
		gateway:  gateway,
		log:      logger,
		sessions: make(map[string]*session),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) guildLock(guildID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[guildID] = l
	}
	return l
}

// WithGuildLock runs fn while holding the guild's session lock.
// fn must not call back into Join or Leave for the same guild.
func (m *Manager) WithGuildLock(guildID string, fn func()) {
	l := m.guildLock(guildID)
	l.Lock()
	defer l.Unlock()
	fn()
}

func (m *Manager) get(guildID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

func (m *Manager) put(guildID string, s *session) {
	m.mu.Lock()
	m.sessions[guildID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetVoiceSessions(n)
}

func (m *Manager) remove(guildID string) {
	m.mu.Lock()
	delete(m.sessions, guildID)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetVoiceSessions(n)
}

// Join connects to channelID, moves the existing session there, or does nothing
// if the bot is already in that channel. textChannelID, when set, becomes the
// guild's notification channel.
func (m *Manager) Join(ctx context.Context, guildID, channelID, textChannelID string) (JoinResult, error) {
	l := m.guildLock(guildID)
	l.Lock()
	defer l.Unlock()

	s := m.get(guildID)
	if s != nil && !s.conn.IsConnected() {
		m.log.Debug().Str("guild_id", guildID).Msg("dropping stale voice session before join")
		_, _ = m.leaveLocked(ctx, guildID)
		s = nil
	}

	if s == nil {
		conn, err := m.gateway.Connect(ctx, guildID, channelID)
		if err != nil {
			return JoinConnected, fmt.Errorf("failed to connect to voice channel %s: %w", channelID, err)
		}
		m.put(guildID, &session{conn: conn, notifyChannel: textChannelID})
		m.log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Msg("voice session connected")
		return JoinConnected, nil
	}

	if textChannelID != "" {
		m.SetNotifyChannel(guildID, textChannelID)
	}

	if s.conn.ChannelID() == channelID {
		return JoinAlreadyConnected, nil
	}

	if err := s.conn.Move(ctx, channelID); err != nil {
		return JoinMoved, fmt.Errorf("failed to move to voice channel %s: %w", channelID, err)
	}
	m.log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Msg("voice session moved")
	return JoinMoved, nil
}

// Leave disconnects and forgets the guild's session.
// It reports false if there was no session.
func (m *Manager) Leave(ctx context.Context, guildID string) (bool, error) {
	l := m.guildLock(guildID)
	l.Lock()
	defer l.Unlock()
	return m.leaveLocked(ctx, guildID)
}

func (m *Manager) leaveLocked(ctx context.Context, guildID string) (bool, error) {
	s := m.get(guildID)
	if s == nil {
		return false, nil
	}
	m.remove(guildID)
	if err := s.conn.Disconnect(ctx); err != nil {
		return true, fmt.Errorf("failed to disconnect from voice in guild %s: %w", guildID, err)
	}
	m.log.Info().Str("guild_id", guildID).Msg("voice session closed")
	return true, nil
}

func (m *Manager) IsConnected(guildID string) bool {
	s := m.get(guildID)
	return s != nil && s.conn.IsConnected()
}

// IsBusy reports whether the guild's device is playing. No session means not busy.
func (m *Manager) IsBusy(guildID string) bool {
	s := m.get(guildID)
	return s != nil && s.conn.IsPlaying()
}

// Play starts audio on the guild's session. It returns false without side effects
// when there is no connected session or the device is already playing.
func (m *Manager) Play(guildID string, audio []byte) bool {
	s := m.get(guildID)
	if s == nil {
		return false
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()

	if !s.conn.IsConnected() || s.conn.IsPlaying() {
		return false
	}

	logger := m.log.With().Str("guild_id", guildID).Logger()
	err := s.conn.Play(audio, func(err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("playback finished with error")
			return
		}
		logger.Debug().Msg("playback finished")
	})
	if err != nil {
		if !errors.Is(err, ErrPlaybackBusy) {
			logger.Error().Err(err).Msg("failed to start playback")
		}
		return false
	}
	return true
}

func (m *Manager) SetNotifyChannel(guildID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		s.notifyChannel = channelID
	}
}

func (m *Manager) NotifyChannel(guildID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		return s.notifyChannel
	}
	return ""
}

// ChannelID returns the voice channel of the guild's session, or "".
func (m *Manager) ChannelID(guildID string) string {
	s := m.get(guildID)
	if s == nil {
		return ""
	}
	return s.conn.ChannelID()
}

// Guilds lists guilds with a session, sorted.
func (m *Manager) Guilds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Shutdown disconnects every session. Errors are joined.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, guildID := range m.Guilds() {
		if _, err := m.Leave(ctx, guildID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
