package asr

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Task selects what the engine does with the audio.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Segment is a run of recognized speech. Start and End are seconds
// relative to the waveform the engine was given.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Result is the engine output for one waveform.
type Result struct {
	Text     string
	Segments []Segment
}

// Options configure a single inference call.
type Options struct {
	Language string // empty or "auto" = detect
	Task     Task
	Verbose  bool // request per-segment timestamps
}

// Engine converts an in-memory 16 kHz mono float32 waveform into text.
// Implementations are not safe for concurrent calls; callers wanting
// batch and streaming at once must hold two engines.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error)
	Close() error
}

// NewEngine returns the whisper engine for the model at modelPath.
func NewEngine(modelPath string, logger *logrus.Logger) (Engine, error) {
	return newWhisperEngine(modelPath, logger)
}
