//go:build !whisper

package asr

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

func newWhisperEngine(modelPath string, logger *logrus.Logger) (Engine, error) {
	return nil, fmt.Errorf("whisper support not compiled in; rebuild with -tags whisper")
}
