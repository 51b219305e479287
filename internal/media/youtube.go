package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"echoscript/internal/config"

	"github.com/sirupsen/logrus"
)

// Downloader fetches the audio track of a YouTube video with yt-dlp.
type Downloader struct {
	ytdlp   string
	tempDir string
	logger  *logrus.Logger
}

// NewDownloader locates yt-dlp and creates the temp dir.
func NewDownloader(cfg *config.Config, logger *logrus.Logger) (*Downloader, error) {
	ytdlp, err := findTool(cfg.Media.YtDlpPath, "yt-dlp", ErrYtDlpNotFound)
	if err != nil {
		return nil, err
	}
	tempDir, err := os.MkdirTemp("", "echoscript_yt_")
	if err != nil {
		return nil, err
	}
	return &Downloader{ytdlp: ytdlp, tempDir: tempDir, logger: logger}, nil
}

// Download fetches the best audio stream as m4a and returns the local
// path. The caller still needs to normalize it to WAV.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	d.logger.Infof("downloading audio from %s", rawURL)

	cmd := exec.CommandContext(ctx, d.ytdlp, downloadArgs(rawURL, d.tempDir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		d.logger.Errorf("yt-dlp: %s", strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}

	entries, err := os.ReadDir(d.tempDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(d.tempDir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("yt-dlp finished but produced no file")
}

// Cleanup removes the temp dir and everything in it.
func (d *Downloader) Cleanup() {
	if err := os.RemoveAll(d.tempDir); err != nil {
		d.logger.Warnf("cleanup downloaded files: %v", err)
	}
}

func downloadArgs(rawURL, tempDir string) []string {
	return []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "m4a",
		"-o", filepath.Join(tempDir, "%(id)s.%(ext)s"),
		"--no-progress",
		"--quiet",
		rawURL,
	}
}

// IsYouTubeURL reports whether raw points at YouTube. Only YouTube
// URLs are accepted as remote sources.
func IsYouTubeURL(raw string) bool {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be"
}
