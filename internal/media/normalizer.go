package media

import (
	"context"
	"fmt"

	"echoscript/internal/config"

	"github.com/sirupsen/logrus"
)

// Normalizer is the single entry point for source acquisition: local
// files go straight through ffmpeg, YouTube URLs are downloaded first.
type Normalizer struct {
	cfg    *config.Config
	conv   *Converter
	dl     *Downloader
	logger *logrus.Logger
}

// NewNormalizer builds the converter eagerly (ffmpeg is always
// needed); yt-dlp is only located when a URL actually shows up.
func NewNormalizer(cfg *config.Config, logger *logrus.Logger) (*Normalizer, error) {
	conv, err := NewConverter(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Normalizer{cfg: cfg, conv: conv, logger: logger}, nil
}

// Prepare returns the path of a normalized WAV for the given source.
func (n *Normalizer) Prepare(ctx context.Context, source string) (string, error) {
	if IsYouTubeURL(source) {
		if n.dl == nil {
			dl, err := NewDownloader(n.cfg, n.logger)
			if err != nil {
				return "", err
			}
			n.dl = dl
		}
		local, err := n.dl.Download(ctx, source)
		if err != nil {
			return "", err
		}
		return n.conv.Normalize(ctx, local)
	}
	if source == "" {
		return "", fmt.Errorf("no source given")
	}
	return n.conv.Normalize(ctx, source)
}

// Cleanup removes every temp file produced so far.
func (n *Normalizer) Cleanup() {
	if n.dl != nil {
		n.dl.Cleanup()
	}
	n.conv.Cleanup()
}
