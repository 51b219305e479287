// Package media turns arbitrary local files and YouTube URLs into the
// normalized 16 kHz mono WAV the pipelines consume, shelling out to
// ffmpeg and yt-dlp.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"echoscript/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

var (
	ErrFFmpegNotFound = errors.New("ffmpeg not found; install it and make sure it is on PATH (https://ffmpeg.org/download.html)")
	ErrYtDlpNotFound  = errors.New("yt-dlp not found; install it and make sure it is on PATH")
)

// Converter re-encodes media files into 16 kHz mono PCM WAV inside a
// private temp dir.
type Converter struct {
	ffmpeg    string
	extraArgs []string
	tempDir   string
	logger    *logrus.Logger
}

// NewConverter locates ffmpeg and creates the temp dir. A missing
// ffmpeg is a setup failure surfaced before any transcription work.
func NewConverter(cfg *config.Config, logger *logrus.Logger) (*Converter, error) {
	ffmpeg, err := findTool(cfg.Media.FFmpegPath, "ffmpeg", ErrFFmpegNotFound)
	if err != nil {
		return nil, err
	}
	extra, err := shlex.Split(cfg.Media.FFmpegExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("media.ffmpeg_extra_args: %w", err)
	}
	tempDir, err := os.MkdirTemp("", "echoscript_local_")
	if err != nil {
		return nil, err
	}
	return &Converter{ffmpeg: ffmpeg, extraArgs: extra, tempDir: tempDir, logger: logger}, nil
}

// Normalize converts src into a WAV file and returns its path. The
// file lives in the converter's temp dir until Cleanup.
func (c *Converter) Normalize(ctx context.Context, src string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(c.tempDir, stem+".wav")

	cmd := exec.CommandContext(ctx, c.ffmpeg, convertArgs(src, out, c.extraArgs)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		c.logger.Errorf("ffmpeg: %s", strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("convert %s: %w", filepath.Base(src), err)
	}
	c.logger.Debugf("converted %s -> %s", src, out)
	return out, nil
}

// Cleanup removes the temp dir and everything in it.
func (c *Converter) Cleanup() {
	if err := os.RemoveAll(c.tempDir); err != nil {
		c.logger.Warnf("cleanup temp files: %v", err)
	}
}

// convertArgs builds the ffmpeg invocation: strip video, 16-bit PCM,
// 16 kHz, mono, overwrite.
func convertArgs(src, dst string, extra []string) []string {
	args := []string{
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
	}
	args = append(args, extra...)
	return append(args, "-y", dst)
}

func findTool(override, name string, notFound error) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("%s configured at %s: %w", name, override, err)
		}
		return override, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", notFound
	}
	return path, nil
}
