package command

import (
	"context"

	"tsumugi/internal/ai"
	"tsumugi/internal/config"
	"tsumugi/internal/spotify"
	"tsumugi/internal/storage"
	"tsumugi/internal/voice"
	"tsumugi/internal/youtube"
)

// Speaker runs speech sequences.
type Speaker interface {
	Speak(ctx context.Context, req voice.SpeakRequest) (voice.SpeakResult, error)
}

type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
}

type VideoLookup interface {
	Lookup(ctx context.Context, videoID string) (youtube.VideoInfo, error)
}

// EngineInfo describes the speech engine for /help.
type EngineInfo interface {
	Ready() bool
	EngineVersion() string
	ModelID() string
	StyleID() int
}

// Services are the dependencies commands may use. Optional integrations are nil
// when their credentials are missing.
type Services struct {
	Config   *config.Config
	Storage  *storage.Storage
	Voice    *voice.Manager
	Speaker  Speaker
	InFlight *voice.InFlight
	Engine   EngineInfo

	AI         ai.Provider
	Summarizer ai.VideoSummarizer
	Spotify    TrackSearcher
	YouTube    VideoLookup
}
