// Package export writes transcription results to disk in the
// supported output formats.
package export

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"echoscript/internal/asr"
)

// Format names a supported output format.
type Format string

const (
	FormatTxt  Format = "txt"
	FormatMD   Format = "md"
	FormatSRT  Format = "srt"
	FormatDocx Format = "docx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTxt, FormatMD, FormatSRT, FormatDocx:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want txt, md, srt or docx)", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Exporter renders a result into a file.
type Exporter interface {
	Export(res asr.Result, path string) error
}

// ForFormat returns the exporter for f.
func ForFormat(f Format) (Exporter, error) {
	switch f {
	case FormatTxt, FormatMD:
		return plainExporter{}, nil
	case FormatSRT:
		return srtExporter{}, nil
	case FormatDocx:
		return docxExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// OutputPath derives the destination file from the input name: same
// base name, format extension, placed in dir. For URLs the video id
// (watch?v=...) or last path element serves as the base.
func OutputPath(dir, input string, f Format) string {
	base := filepath.Base(input)
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if id := u.Query().Get("v"); id != "" {
			base = id
		} else {
			base = path.Base(u.Path)
		}
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "transcript"
	}
	return filepath.Join(dir, base+f.Ext())
}

type plainExporter struct{}

func (plainExporter) Export(res asr.Result, path string) error {
	return writeFile(path, res.Text+"\n")
}

type srtExporter struct{}

func (srtExporter) Export(res asr.Result, path string) error {
	if len(res.Segments) == 0 {
		return fmt.Errorf("srt export needs timestamped segments")
	}
	var b strings.Builder
	for i, seg := range res.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatSRTTime(seg.Start), FormatSRTTime(seg.End),
			strings.TrimSpace(seg.Text))
	}
	return writeFile(path, b.String())
}

// FormatSRTTime renders seconds as an SRT cue timestamp,
// HH:MM:SS,mmm, rounding to the nearest millisecond.
func FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatTimestamped renders segments as "[HH:MM:SS -> HH:MM:SS] text"
// lines, seconds truncated.
func FormatTimestamped(segments []asr.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s -> %s] %s\n",
			clockTime(seg.Start), clockTime(seg.End),
			strings.TrimSpace(seg.Text))
	}
	return b.String()
}

func clockTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	t := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", t/3600, t%3600/60, t%60)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
