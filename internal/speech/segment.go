// Package speech splits response text into chunks sized for one synthesis call each.
package speech

import (
	"strings"
)

const (
	// DefaultMaxLength is the segment cap used when none is configured.
	DefaultMaxLength = 120

	// DefaultDelimiters are sentence and clause endings, full-width and ASCII.
	DefaultDelimiters = "。、."

	// flushRatio is how full the buffer must be before a delimiter ends a segment.
	flushRatio = 0.7
)

// Segmenter holds the segmentation settings. The zero value uses the defaults.
type Segmenter struct {
	MaxLength  int
	Delimiters string
}

// Segment splits text with the default delimiters.
func Segment(text string, maxLength int) []string {
	return Segmenter{MaxLength: maxLength}.Segment(text)
}

// Segment returns the ordered segments of text. Each segment is trimmed and at most
// MaxLength runes long. Empty input yields an empty slice.
func (s Segmenter) Segment(text string) []string {
	if text == "" {
		return []string{}
	}

	maxLength := s.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	delimiters := DefaultDelimiters + s.Delimiters
	threshold := flushRatio * float64(maxLength)

	segments := make([]string, 0, len(text)/maxLength+1)
	buf := make([]rune, 0, maxLength)
	flush := func() {
		if seg := strings.TrimSpace(string(buf)); seg != "" {
			segments = append(segments, seg)
		}
		buf = buf[:0]
	}

	for _, r := range text {
		buf = append(buf, r)
		switch {
		case strings.ContainsRune(delimiters, r) && float64(len(buf)) > threshold:
			flush()
		case len(buf) >= maxLength:
			flush()
		}
	}
	flush()

	if len(segments) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}
