package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tsumugi/internal/metrics"
	"tsumugi/internal/speech"
)

const (
	DefaultPollInterval = 500 * time.Millisecond

	// consecutive refused Play calls on an idle, connected device before the segment is dropped
	maxPlayAttempts = 3
)

type State int

const (
	StateIdle State = iota
	StateSegmenting
	StateSynthesizing
	StateWaitingForDeviceFree
	StatePlaying
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSegmenting:
		return "segmenting"
	case StateSynthesizing:
		return "synthesizing"
	case StateWaitingForDeviceFree:
		return "waiting_for_device_free"
	case StatePlaying:
		return "playing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// SessionController is the part of Manager the orchestrator drives.
type SessionController interface {
	IsConnected(guildID string) bool
	IsBusy(guildID string) bool
	Play(guildID string, audio []byte) bool
	NotifyChannel(guildID string) string
}

type OrchestratorConfig struct {
	MaxSegmentLength int
	PollInterval     time.Duration
}

type SpeakRequest struct {
	GuildID string
	// TextChannelID receives skip notices. Falls back to the session's notification channel.
	TextChannelID string
	Text          string
}

type SpeakResult struct {
	SequenceID string
	Segments   int
	Played     int
	Skipped    int
	State      State
}

// Orchestrator turns text into a strictly ordered sequence of played audio segments.
type Orchestrator struct {
	sessions     SessionController
	synth        Synthesizer
	notifier     Notifier
	segmenter    speech.Segmenter
	pollInterval time.Duration
	log          zerolog.Logger
}

func NewOrchestrator(sessions SessionController, synth Synthesizer, notifier Notifier, cfg OrchestratorConfig, logger zerolog.Logger) *Orchestrator {
	if cfg.MaxSegmentLength <= 0 {
		cfg.MaxSegmentLength = speech.DefaultMaxLength
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Orchestrator{
		sessions:     sessions,
		synth:        synth,
		notifier:     notifier,
		segmenter:    speech.Segmenter{MaxLength: cfg.MaxSegmentLength},
		pollInterval: cfg.PollInterval,
		log:          logger,
	}
}

// Speak segments req.Text and plays each segment in order on the guild's session.
//
// A failed synthesis skips its segment and the sequence goes on. Disconnection, an
// uninitialized engine or ctx cancellation abort the rest of the sequence.
func (o *Orchestrator) Speak(ctx context.Context, req SpeakRequest) (SpeakResult, error) {
	res := SpeakResult{SequenceID: uuid.NewString(), State: StateIdle}

	if !o.sessions.IsConnected(req.GuildID) {
		return res, ErrNoActiveSession
	}

	logger := o.log.With().
		Str("guild_id", req.GuildID).
		Str("sequence_id", res.SequenceID).
		Logger()

	res.State = StateSegmenting
	segments := o.segmenter.Segment(req.Text)
	res.Segments = len(segments)
	logger.Debug().Int("segments", len(segments)).Msg("speech sequence started")

	abort := func(err error) (SpeakResult, error) {
		res.State = StateAborted
		metrics.RecordSequence(res.State.String())
		logger.Info().Err(err).Int("played", res.Played).Int("skipped", res.Skipped).Msg("speech sequence aborted")
		return res, err
	}

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return abort(fmt.Errorf("%w: %w", ErrAborted, err))
		}
		if !o.sessions.IsConnected(req.GuildID) {
			return abort(fmt.Errorf("%w: %w", ErrAborted, ErrSessionNotConnected))
		}

		res.State = StateSynthesizing
		start := time.Now()
		audio, err := o.synth.Synthesize(ctx, seg)
		metrics.ObserveSynthesis(time.Since(start))
		if err != nil {
			if errors.Is(err, ErrEngineNotReady) {
				return abort(fmt.Errorf("%w: %w", ErrAborted, err))
			}
			if ctx.Err() != nil {
				return abort(fmt.Errorf("%w: %w", ErrAborted, ctx.Err()))
			}
			res.Skipped++
			metrics.RecordSegmentSkipped()
			logger.Warn().Err(err).Int("segment", i).Msg("synthesis failed, skipping segment")
			o.notify(ctx, logger, req, skipNotice(seg))
			continue
		}

		played, err := o.playWhenFree(ctx, req.GuildID, audio, &res)
		if err != nil {
			return abort(err)
		}
		if !played {
			res.Skipped++
			metrics.RecordSegmentSkipped()
			logger.Warn().Int("segment", i).Msg("playback refused on idle device, skipping segment")
			o.notify(ctx, logger, req, skipNotice(seg))
			continue
		}
		res.Played++
		metrics.RecordSegmentPlayed()
	}

	res.State = StateDone
	metrics.RecordSequence(res.State.String())
	logger.Debug().Int("played", res.Played).Int("skipped", res.Skipped).Msg("speech sequence done")
	return res, nil
}

// playWhenFree waits for the device to go idle and starts audio.
// It reports false when Play keeps being refused while the device is idle.
func (o *Orchestrator) playWhenFree(ctx context.Context, guildID string, audio []byte, res *SpeakResult) (bool, error) {
	refused := 0
	for {
		res.State = StateWaitingForDeviceFree
		if err := o.waitForDevice(ctx, guildID); err != nil {
			return false, err
		}

		res.State = StatePlaying
		if o.sessions.Play(guildID, audio) {
			return true, nil
		}

		// lost a race with another playback, wait again
		if o.sessions.IsBusy(guildID) {
			refused = 0
			continue
		}
		refused++
		if refused >= maxPlayAttempts {
			return false, nil
		}
	}
}

func (o *Orchestrator) waitForDevice(ctx context.Context, guildID string) error {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		if !o.sessions.IsConnected(guildID) {
			return fmt.Errorf("%w: %w", ErrAborted, ErrSessionNotConnected)
		}
		if !o.sessions.IsBusy(guildID) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, logger zerolog.Logger, req SpeakRequest, msg string) {
	if o.notifier == nil {
		return
	}
	channelID := req.TextChannelID
	if channelID == "" {
		channelID = o.sessions.NotifyChannel(req.GuildID)
	}
	if channelID == "" {
		return
	}
	if err := o.notifier.Send(ctx, channelID, msg); err != nil {
		logger.Warn().Err(fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, err)).Str("channel_id", channelID).Msg("skip notice not delivered")
	}
}

func skipNotice(segment string) string {
	return fmt.Sprintf("セグメント「%s」の音声生成に失敗したため、スキップしました。", preview(segment, 20))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
