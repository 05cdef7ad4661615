// Package youtube validates YouTube links and looks up video metadata.
package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	}
	videoIDFormat = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

	youtubeHosts = map[string]bool{
		"youtube.com":     true,
		"www.youtube.com": true,
		"m.youtube.com":   true,
		"youtu.be":        true,
		"www.youtu.be":    true,
	}
)

// SanitizeURL trims whitespace and strips control characters.
func SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, raw)
}

// IsValidURL accepts absolute http(s) URLs with a host.
func IsValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func IsYouTubeURL(raw string) bool {
	if !IsValidURL(raw) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

// ExtractVideoID returns the 11 character video id of a YouTube URL, or "".
func ExtractVideoID(raw string) string {
	if !IsYouTubeURL(raw) {
		return ""
	}
	for _, re := range videoIDPatterns {
		m := re.FindStringSubmatch(raw)
		if m != nil && videoIDFormat.MatchString(m[1]) {
			return m[1]
		}
	}
	return ""
}

// WatchURL is the canonical URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
