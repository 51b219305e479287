// Package pipeline drives the speech engine over whole files (batch)
// and live microphone audio (streaming). Both pipelines poll a shared
// cancellation flag between units of work and report progress through
// caller-supplied callbacks.
package pipeline

import (
	"context"
	"errors"
	"io"

	"echoscript/internal/asr"
	"echoscript/internal/audio"

	"github.com/sirupsen/logrus"
)

// DefaultChunkSeconds is the batch window length. 30 seconds is the
// standard whisper context size.
const DefaultChunkSeconds = 30

// ProgressFunc receives (chunksDone, chunksTotal) after every chunk.
// It runs on the worker goroutine and must not block.
type ProgressFunc func(done, total int)

// Result is the aggregated output of one batch run. Immutable once
// returned. An empty Text with no Segments and Cancelled unset means
// the run failed; the reason is in the log.
type Result struct {
	Text      string
	Segments  []asr.Segment
	Cancelled bool
}

// BatchOptions configure one batch run.
type BatchOptions struct {
	Language     string
	Task         asr.Task
	ChunkSeconds int // 0 means DefaultChunkSeconds
	Progress     ProgressFunc
	Cancel       *Flag
}

// Batch transcribes finite audio sources chunk by chunk.
type Batch struct {
	engine asr.Engine
	logger *logrus.Logger
}

// NewBatch returns a batch pipeline over the given engine.
func NewBatch(engine asr.Engine, logger *logrus.Logger) *Batch {
	return &Batch{engine: engine, logger: logger}
}

// Run transcribes the normalized waveform at path end to end. Failures
// never panic or propagate: a source that cannot be opened yields an
// empty Result, a mid-job read or inference failure yields the partial
// result gathered so far, and cancellation yields the partial result
// with Cancelled set. Reasons go to the log.
func (b *Batch) Run(ctx context.Context, path string, opts BatchOptions) Result {
	res, err := b.run(ctx, path, opts)
	if err != nil {
		b.logger.Errorf("transcription failed: %v", err)
		return Result{}
	}
	return res
}

func (b *Batch) run(ctx context.Context, path string, opts BatchOptions) (Result, error) {
	src, err := audio.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			b.logger.Warnf("close source: %v", err)
		}
	}()

	chunkSeconds := opts.ChunkSeconds
	if chunkSeconds <= 0 {
		chunkSeconds = DefaultChunkSeconds
	}
	chunkFrames := chunkSeconds * src.SampleRate()
	total := audio.NumChunks(src.TotalFrames(), chunkFrames)

	engineOpts := asr.Options{
		Language: opts.Language,
		Task:     opts.Task,
		Verbose:  true, // per-segment timestamps
	}
	if engineOpts.Language == "auto" {
		engineOpts.Language = ""
	}
	if engineOpts.Task == "" {
		engineOpts.Task = asr.TaskTranscribe
	}

	var segments []asr.Segment
	for i := 0; ; i++ {
		if opts.Cancel.IsSet() {
			b.logger.Infof("cancelled after %d/%d chunks", i, total)
			return Result{Text: JoinSegments(segments), Segments: segments, Cancelled: true}, nil
		}

		samples, err := src.ReadChunk(chunkFrames)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Mid-job failure keeps whatever was already transcribed.
			b.logger.Errorf("read chunk %d: %v", i, err)
			break
		}

		out, err := b.engine.Transcribe(ctx, samples, engineOpts)
		if err != nil {
			b.logger.Errorf("transcribe chunk %d: %v", i, err)
			break
		}

		// Chunk order guarantees the global timeline; no re-sort.
		segments = append(segments, Globalize(out.Segments, float64(i*chunkSeconds))...)

		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	return Result{Text: JoinSegments(segments), Segments: segments}, nil
}
