// /internal/config/config.go
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultPersona = `あなたは「つむぎ」という名前の明るく親しみやすいアシスタントです。
丁寧語で、短く分かりやすく答えてください。`

type Config struct {
	DiscordToken          string   `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	DeveloperID           string   `env:"DEVELOPER_ID"`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandCacheDir       string   `env:"COMMAND_CACHE_DIR" envDefault:"data/commands"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL_NAME" envDefault:"gemini-2.0-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiPersona string `env:"GEMINI_PERSONA"`

	SpotifyClientID     string `env:"SPOTIPY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIPY_CLIENT_SECRET"`
	SpotifyMarket       string `env:"SPOTIFY_MARKET" envDefault:"JP"`

	YouTubeProxy string `env:"YOUTUBE_PROXY"`

	VoicevoxURL     string        `env:"VOICEVOX_URL" envDefault:"http://127.0.0.1:50021"`
	VoicevoxModelID string        `env:"VOICEVOX_MODEL_ID" envDefault:"0"`
	VoicevoxStyleID int           `env:"VOICEVOX_STYLE_ID" envDefault:"8"`
	VoicevoxTimeout time.Duration `env:"VOICEVOX_TIMEOUT" envDefault:"30s"`

	SpeechMaxSegment   int           `env:"SPEECH_MAX_SEGMENT" envDefault:"120"`
	SpeechPollInterval time.Duration `env:"SPEECH_POLL_INTERVAL" envDefault:"500ms"`

	MessageRateLimit  int           `env:"MESSAGE_RATE_LIMIT" envDefault:"5"`
	MessageRateWindow time.Duration `env:"MESSAGE_RATE_WINDOW" envDefault:"5s"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	LogFile   string `env:"LOG_FILE"`
}

// New loads .env (if present) and parses the process environment.
func New() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.GeminiPersona == "" {
		cfg.GeminiPersona = defaultPersona
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SpeechMaxSegment <= 0 {
		return fmt.Errorf("SPEECH_MAX_SEGMENT must be positive, got %d", c.SpeechMaxSegment)
	}
	if c.SpeechPollInterval <= 0 {
		return fmt.Errorf("SPEECH_POLL_INTERVAL must be positive, got %s", c.SpeechPollInterval)
	}
	if c.MessageRateLimit <= 0 || c.MessageRateWindow <= 0 {
		return fmt.Errorf("message rate limit must be positive")
	}
	return nil
}

// AIEnabled reports whether a Gemini key was supplied.
func (c *Config) AIEnabled() bool { return c.GeminiAPIKey != "" }

// SpotifyEnabled reports whether both Spotify credentials were supplied.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.DiscordGuildBlacklist, guildID)
}

func IsDeveloper(cfg *Config, userID string) bool {
	return cfg.DeveloperID != "" && cfg.DeveloperID == userID
}
