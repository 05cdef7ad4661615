package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "", 10, nil},
		{"fits", "hello", 10, []string{"hello"}},
		{"exact", "abcd", 4, []string{"abcd"}},
		{"split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "あいうえおか", 4, []string{"あいうえ", "おか"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.text, tt.limit))
		})
	}
}

func TestChunkRespectsDiscordLimit(t *testing.T) {
	text := strings.Repeat("つ", MaxMessageLength*2+1)
	chunks := Chunk(text, MaxMessageLength)

	assert.Len(t, chunks, 3)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), MaxMessageLength)
	}
}
