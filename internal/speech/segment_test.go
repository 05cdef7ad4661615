package speech

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestSegment_Empty(t *testing.T) {
	assert.Empty(t, Segment("", 10))
	assert.NotNil(t, Segment("", 10))
}

func TestSegment_WhitespaceOnly(t *testing.T) {
	assert.Empty(t, Segment("   \n\t ", 10))
}

func TestSegment_HardCap(t *testing.T) {
	assert.Equal(t, []string{"abcde", "fghij"}, Segment("abcdefghij", 5))
}

func TestSegment_JapaneseSentences(t *testing.T) {
	in := "こんにちは。今日はいい天気です。"
	got := Segment(in, 10)

	require.Len(t, got, 2)
	for _, seg := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(seg), 10)
	}
	assert.Equal(t, in, strings.Join(got, ""))
	assert.True(t, strings.HasSuffix(got[len(got)-1], "。"))
}

func TestSegment_DelimiterFlushAfterThreshold(t *testing.T) {
	// 0.7*10 = 7: the first "." sits at rune 8, so it closes a segment there.
	got := Segment("abcdefg. hijklmn.", 10)
	assert.Equal(t, []string{"abcdefg.", "hijklmn."}, got)
}

func TestSegment_ShortTextSingleSegment(t *testing.T) {
	assert.Equal(t, []string{"はい。"}, Segment("  はい。 ", 120))
}

func TestSegment_DefaultLength(t *testing.T) {
	in := strings.Repeat("あ", 250)
	got := Segment(in, 0)
	require.Len(t, got, 3)
	assert.Equal(t, DefaultMaxLength, utf8.RuneCountInString(got[0]))
	assert.Equal(t, 10, utf8.RuneCountInString(got[2]))
}

func TestSegmenter_ExtraDelimiters(t *testing.T) {
	s := Segmenter{MaxLength: 10, Delimiters: "!"}
	got := s.Segment("abcdefgh!ijk")
	assert.Equal(t, []string{"abcdefgh!", "ijk"}, got)

	// The built-in set stays active.
	got = s.Segment("abcdefgh。ijk")
	assert.Equal(t, []string{"abcdefgh。", "ijk"}, got)
}

func TestSegment_Properties(t *testing.T) {
	inputs := []string{
		"吾輩は猫である。名前はまだ無い。どこで生れたかとんと見当がつかぬ、何でも薄暗いじめじめした所でニャーニャー泣いていた事だけは記憶している。",
		"The quick brown fox jumps over the lazy dog. It was not amused, and it said so.",
		strings.Repeat("no punctuation here ", 20),
		"a.b.c.d.e.f.g.h.i.j.k",
		"、、、、、、、、、、、、",
	}
	for _, in := range inputs {
		for _, limit := range []int{1, 3, 7, 10, 50, 120} {
			got := Segment(in, limit)
			for _, seg := range got {
				assert.LessOrEqual(t, utf8.RuneCountInString(seg), limit, "limit %d: %q", limit, seg)
				assert.NotEmpty(t, seg)
			}
			assert.Equal(t, stripSpace(in), stripSpace(strings.Join(got, "")), "limit %d", limit)
		}
	}
}
