//go:build whisper

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

// whisperEngine runs whisper.cpp on in-memory waveforms.
type whisperEngine struct {
	model  whisper.Model
	logger *logrus.Logger
}

func newWhisperEngine(modelPath string, logger *logrus.Logger) (Engine, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &whisperEngine{model: model, logger: logger}, nil
}

func (e *whisperEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return Result{}, err
	}
	if lang := strings.TrimSpace(opts.Language); lang != "" && lang != "auto" {
		if err := wctx.SetLanguage(lang); err != nil {
			e.logger.Warnf("set language: %v", err)
		}
	}
	wctx.SetTranslate(opts.Task == TaskTranslate)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, err
	}

	var res Result
	var b strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Result{}, err
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		res.Segments = append(res.Segments, Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  text,
		})
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	res.Text = b.String()
	return res, nil
}

func (e *whisperEngine) Close() error {
	return e.model.Close()
}
