package config

const (
	CategoryBasic = "🕯️ 基本"
	CategoryVoice = "🔊 音声"
	CategoryAI    = "💬 質問"
	CategoryMusic = "🎵 音楽"
	CategoryMedia = "🎞️ 動画"
	CategoryLog   = "🛠️ 管理"
)

// CategoryWeights orders categories in /help.
var CategoryWeights = map[string]int{
	CategoryBasic: 0,
	CategoryVoice: 10,
	CategoryAI:    20,
	CategoryMusic: 30,
	CategoryMedia: 40,
	CategoryLog:   60,
}
