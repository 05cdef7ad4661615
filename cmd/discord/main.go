// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "tsumugi/internal/command/ask"
	_ "tsumugi/internal/command/core"
	_ "tsumugi/internal/command/media"
	_ "tsumugi/internal/command/music"
	_ "tsumugi/internal/command/voicechat"

	"tsumugi/internal/ai"
	"tsumugi/internal/command"
	"tsumugi/internal/config"
	"tsumugi/internal/discord"
	"tsumugi/internal/logging"
	"tsumugi/internal/metrics"
	"tsumugi/internal/spotify"
	"tsumugi/internal/storage"
	"tsumugi/internal/voice"
	"tsumugi/internal/voicevox"
	"tsumugi/internal/youtube"
	"tsumugi/pkg/jobmgr"
)

const (
	appName              = "tsumugi"
	engineRetryInterval  = 30 * time.Second
	shutdownGraceTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Init(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, File: cfg.LogFile})
	logger.Info().Msgf("starting %s bot...", appName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath, logging.Component("storage"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to flush storage")
		}
	}()

	engine := voicevox.New(voicevox.Options{
		BaseURL: cfg.VoicevoxURL,
		ModelID: cfg.VoicevoxModelID,
		StyleID: cfg.VoicevoxStyleID,
		Timeout: cfg.VoicevoxTimeout,
	}, logging.Component("voicevox"))
	jobs := jobmgr.NewManager(logging.Component("jobs"))
	_ = jobs.Start(ctx, "engine-init", func(ctx context.Context) error {
		return initializeEngine(ctx, engine, logging.Component("voicevox"))
	})

	bot, err := discord.New(cfg, logging.Component("discord"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord bot")
	}

	manager := voice.NewManager(bot.VoiceGateway(), logging.Component("voice"))
	notifier := bot.Notifier()
	orchestrator := voice.NewOrchestrator(manager, engine, notifier, voice.OrchestratorConfig{
		MaxSegmentLength: cfg.SpeechMaxSegment,
		PollInterval:     cfg.SpeechPollInterval,
	}, logging.Component("orchestrator"))
	autoLeave := voice.NewAutoLeave(manager, bot.Members(), notifier, bot.UserID, logging.Component("autoleave"))

	services := &command.Services{
		Config:   cfg,
		Storage:  store,
		Voice:    manager,
		Speaker:  orchestrator,
		InFlight: voice.NewInFlight(),
		Engine:   engine,
	}
	wireIntegrations(cfg, services, logger)

	_ = jobs.Start(ctx, "metrics", func(ctx context.Context) error {
		return metrics.RunServer(ctx, cfg.MetricsAddr, engine.Ready, logging.Component("metrics"))
	})

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx, services, autoLeave); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("discord bot error")
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGraceTimeout)
	defer stop()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("voice sessions closed with errors")
	}
	cancel()
	<-errCh
	jobs.StopAll()
	jobs.Wait()

	logger.Info().Msg("discord bot exited cleanly")
}

// wireIntegrations enables the optional services whose credentials are configured.
func wireIntegrations(cfg *config.Config, services *command.Services, logger zerolog.Logger) {
	if cfg.AIEnabled() {
		gemini, err := ai.NewGemini(ai.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		}, logging.Component("gemini"))
		if err != nil {
			logger.Error().Err(err).Msg("gemini disabled")
		} else {
			services.AI = gemini
			services.Summarizer = gemini
			logger.Info().Str("model", gemini.Model()).Msg("gemini enabled")
		}
	} else {
		logger.Warn().Msg("GEMINI_API_KEY is not set, /ask and /summarize_youtube are disabled")
	}

	if cfg.SpotifyEnabled() {
		sp, err := spotify.New(spotify.Options{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			Market:       cfg.SpotifyMarket,
		}, logging.Component("spotify"))
		if err != nil {
			logger.Error().Err(err).Msg("spotify disabled")
		} else {
			services.Spotify = sp
		}
	} else {
		logger.Warn().Msg("spotify credentials are not set, /search_spotify is disabled")
	}

	yt, err := youtube.NewMetadataClient(cfg.YouTubeProxy, 0)
	if err != nil {
		logger.Error().Err(err).Msg("youtube metadata lookups disabled")
		return
	}
	services.YouTube = yt
}

// initializeEngine retries until the speech engine accepts the speaker or ctx ends.
func initializeEngine(ctx context.Context, engine *voicevox.Client, logger zerolog.Logger) error {
	ticker := time.NewTicker(engineRetryInterval)
	defer ticker.Stop()
	for {
		err := engine.Initialize(ctx)
		if err == nil {
			logger.Info().Str("version", engine.EngineVersion()).Int("style_id", engine.StyleID()).Msg("speech engine initialized")
			return nil
		}
		logger.Error().Err(err).Dur("retry_in", engineRetryInterval).Msg("speech engine initialization failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
