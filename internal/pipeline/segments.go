package pipeline

import (
	"strings"

	"echoscript/internal/asr"
)

// Globalize returns a copy of segs with start/end shifted by offset
// seconds. Engine output is never mutated in place.
func Globalize(segs []asr.Segment, offset float64) []asr.Segment {
	if len(segs) == 0 {
		return nil
	}
	out := make([]asr.Segment, len(segs))
	for i, s := range segs {
		s.Start += offset
		s.End += offset
		out[i] = s
	}
	return out
}

// JoinSegments builds the aggregate text: trimmed segment texts joined
// with single spaces.
func JoinSegments(segs []asr.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
