package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"v path", "https://youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"v not first", "https://m.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"other host", "https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"no scheme", "www.youtube.com/watch?v=dQw4w9WgXcQ", ""},
		{"short id", "https://www.youtube.com/watch?v=abc", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVideoID(tt.url))
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", SanitizeURL("  https://youtu.be/dQw4w9WgXcQ\x00\x1f \n"))
	assert.Empty(t, SanitizeURL(""))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("http://example.com"))
	assert.False(t, IsValidURL("ftp://example.com"))
	assert.False(t, IsValidURL("https://"))
	assert.False(t, IsValidURL("not a url"))
}

func TestProxyTransport(t *testing.T) {
	rt, err := proxyTransport("")
	require.NoError(t, err)
	assert.NotNil(t, rt)

	_, err = proxyTransport("socks5://127.0.0.1:1080")
	require.NoError(t, err)

	_, err = proxyTransport("http://127.0.0.1:8080")
	require.NoError(t, err)

	_, err = proxyTransport("gopher://127.0.0.1:70")
	require.Error(t, err)
}
