package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"echoscript/internal/asr"
	"echoscript/internal/logging"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// fakeEngine returns scripted segments per call, in call order. When
// err is set, calls from index errAfter onward fail.
type fakeEngine struct {
	mu       sync.Mutex
	replies  [][]asr.Segment
	calls    int
	lastOpts asr.Options
	err      error
	errAfter int
}

func (f *fakeEngine) Transcribe(_ context.Context, samples []float32, opts asr.Options) (asr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	if f.err != nil && f.calls >= f.errAfter {
		return asr.Result{}, f.err
	}
	var segs []asr.Segment
	if f.calls < len(f.replies) {
		segs = f.replies[f.calls]
	}
	f.calls++
	return asr.Result{Text: JoinSegments(segs), Segments: segs}, nil
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// writeTestWAV writes seconds of silence as 16 kHz 16-bit mono PCM.
func writeTestWAV(t *testing.T, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	frames := int(math.Round(seconds * 16000))
	buf := &gaudio.IntBuffer{
		Data:           make([]int, frames),
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: 16000},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestRunChunkCountAndProgress(t *testing.T) {
	path := writeTestWAV(t, 45) // 30 s + 15 s
	engine := &fakeEngine{}
	b := NewBatch(engine, logging.NewTestLogger())

	var progress [][2]int
	res := b.Run(context.Background(), path, BatchOptions{
		Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})
	if res.Cancelled {
		t.Fatalf("unexpected cancellation")
	}
	if engine.callCount() != 2 {
		t.Fatalf("expected 2 inference calls, got %d", engine.callCount())
	}
	want := [][2]int{{1, 2}, {2, 2}}
	if len(progress) != len(want) {
		t.Fatalf("progress calls got %v want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress[%d]=%v want %v", i, progress[i], want[i])
		}
	}
}

func TestRunOffsetsSegmentsIntoGlobalTimeline(t *testing.T) {
	path := writeTestWAV(t, 45)
	engine := &fakeEngine{replies: [][]asr.Segment{
		{{Start: 0, End: 5, Text: "hello"}},
		{{Start: 2, End: 4, Text: "world"}},
	}}
	b := NewBatch(engine, logging.NewTestLogger())

	res := b.Run(context.Background(), path, BatchOptions{})
	if len(res.Segments) != 2 {
		t.Fatalf("segments got %d want 2", len(res.Segments))
	}
	if res.Segments[0].Start != 0 || res.Segments[0].End != 5 {
		t.Fatalf("segment 0 got %+v", res.Segments[0])
	}
	if res.Segments[1].Start != 32 || res.Segments[1].End != 34 {
		t.Fatalf("segment 1 got %+v", res.Segments[1])
	}
	if res.Text != "hello world" {
		t.Fatalf("text got %q", res.Text)
	}
}

func TestRunSegmentsNonDecreasing(t *testing.T) {
	path := writeTestWAV(t, 95) // 4 chunks
	engine := &fakeEngine{replies: [][]asr.Segment{
		{{Start: 1, End: 10, Text: "a"}, {Start: 12, End: 20, Text: "b"}},
		{{Start: 0, End: 8, Text: "c"}},
		{{Start: 5, End: 25, Text: "d"}},
		{{Start: 0, End: 3, Text: "e"}},
	}}
	b := NewBatch(engine, logging.NewTestLogger())

	res := b.Run(context.Background(), path, BatchOptions{})
	if len(res.Segments) != 5 {
		t.Fatalf("segments got %d", len(res.Segments))
	}
	for i := 1; i < len(res.Segments); i++ {
		if res.Segments[i].Start < res.Segments[i-1].Start {
			t.Fatalf("segments out of order at %d: %v", i, res.Segments)
		}
	}
}

func TestRunIdempotentChunkLayout(t *testing.T) {
	path := writeTestWAV(t, 70)
	replies := [][]asr.Segment{
		{{Start: 0, End: 4, Text: "one"}},
		{{Start: 1, End: 2, Text: "two"}},
		{{Start: 0, End: 9, Text: "three"}},
	}
	run := func() Result {
		engine := &fakeEngine{replies: replies}
		return NewBatch(engine, logging.NewTestLogger()).Run(context.Background(), path, BatchOptions{})
	}
	first, second := run(), run()
	if len(first.Segments) != len(second.Segments) {
		t.Fatalf("segment counts differ: %d vs %d", len(first.Segments), len(second.Segments))
	}
	for i := range first.Segments {
		if first.Segments[i] != second.Segments[i] {
			t.Fatalf("segment %d differs: %+v vs %+v", i, first.Segments[i], second.Segments[i])
		}
	}
}

func TestRunCancelBeforeStart(t *testing.T) {
	path := writeTestWAV(t, 45)
	engine := &fakeEngine{}
	b := NewBatch(engine, logging.NewTestLogger())

	cancel := &Flag{}
	cancel.Set()
	progressCalls := 0
	res := b.Run(context.Background(), path, BatchOptions{
		Cancel:   cancel,
		Progress: func(done, total int) { progressCalls++ },
	})
	if !res.Cancelled {
		t.Fatalf("expected cancelled result")
	}
	if res.Text != "" || len(res.Segments) != 0 {
		t.Fatalf("expected empty partial result, got %+v", res)
	}
	if engine.callCount() != 0 {
		t.Fatalf("expected no inference calls, got %d", engine.callCount())
	}
	if progressCalls != 0 {
		t.Fatalf("progress must not be invoked, got %d calls", progressCalls)
	}
}

func TestRunCancelMidJobKeepsPartial(t *testing.T) {
	path := writeTestWAV(t, 95) // 4 chunks
	cancel := &Flag{}
	engine := &fakeEngine{replies: [][]asr.Segment{
		{{Start: 0, End: 5, Text: "kept"}},
		{{Start: 0, End: 5, Text: "also kept"}},
	}}
	b := NewBatch(engine, logging.NewTestLogger())

	res := b.Run(context.Background(), path, BatchOptions{
		Cancel: cancel,
		Progress: func(done, total int) {
			if done == 2 {
				cancel.Set()
			}
		},
	})
	if !res.Cancelled {
		t.Fatalf("expected cancelled result")
	}
	if engine.callCount() != 2 {
		t.Fatalf("expected 2 chunks processed, got %d", engine.callCount())
	}
	if len(res.Segments) != 2 {
		t.Fatalf("partial segments got %d", len(res.Segments))
	}
	if res.Text != "kept also kept" {
		t.Fatalf("partial text got %q", res.Text)
	}
}

func TestRunFailSoftOnEngineError(t *testing.T) {
	path := writeTestWAV(t, 45)
	engine := &fakeEngine{err: fmt.Errorf("model exploded")}
	b := NewBatch(engine, logging.NewTestLogger())

	res := b.Run(context.Background(), path, BatchOptions{})
	if res.Text != "" || len(res.Segments) != 0 || res.Cancelled {
		t.Fatalf("expected empty result on failure, got %+v", res)
	}
}

func TestRunKeepsPartialOnMidJobError(t *testing.T) {
	path := writeTestWAV(t, 95) // 4 chunks
	engine := &fakeEngine{
		replies: [][]asr.Segment{
			{{Start: 0, End: 3, Text: "first"}},
			{{Start: 0, End: 3, Text: "second"}},
		},
		err:      fmt.Errorf("model exploded"),
		errAfter: 2,
	}
	b := NewBatch(engine, logging.NewTestLogger())

	res := b.Run(context.Background(), path, BatchOptions{})
	if res.Cancelled {
		t.Fatal("failure must not be reported as cancellation")
	}
	if res.Text != "first second" {
		t.Fatalf("partial text = %q, want %q", res.Text, "first second")
	}
	if len(res.Segments) != 2 {
		t.Fatalf("partial segments = %d, want 2", len(res.Segments))
	}
}

func TestRunFailSoftOnMissingFile(t *testing.T) {
	b := NewBatch(&fakeEngine{}, logging.NewTestLogger())
	res := b.Run(context.Background(), "/nonexistent/audio.wav", BatchOptions{})
	if res.Text != "" || len(res.Segments) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestRunRequestsTimestampsAndNormalizesLanguage(t *testing.T) {
	path := writeTestWAV(t, 10)
	engine := &fakeEngine{}
	b := NewBatch(engine, logging.NewTestLogger())

	b.Run(context.Background(), path, BatchOptions{Language: "auto"})
	if !engine.lastOpts.Verbose {
		t.Fatalf("batch must request per-segment timestamps")
	}
	if engine.lastOpts.Language != "" {
		t.Fatalf("auto language must be normalized to empty, got %q", engine.lastOpts.Language)
	}
	if engine.lastOpts.Task != asr.TaskTranscribe {
		t.Fatalf("default task got %q", engine.lastOpts.Task)
	}
}
