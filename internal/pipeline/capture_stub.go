//go:build !whisper

package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// NewMicCapture requires PortAudio, which is only linked in whisper builds.
func NewMicCapture(deviceName string, sampleRate, blockMS int, logger *logrus.Logger) (Capture, error) {
	return nil, fmt.Errorf("microphone capture not compiled in; rebuild with -tags whisper")
}
