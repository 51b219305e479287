package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"echoscript/internal/asr"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultWindowSeconds is how much audio the streaming consumer
	// accumulates before each inference call. Windows are disjoint:
	// the buffer resets after every call, it never slides.
	DefaultWindowSeconds = 5

	// DefaultBlockMS is the capture block size handed to the queue.
	DefaultBlockMS = 1000

	// streamQueueBlocks bounds the capture queue; overflow blocks are
	// dropped with a warning rather than stalling the audio callback.
	streamQueueBlocks = 64

	// queueWait caps how long the consumer sleeps on an empty queue so
	// it can re-check the stop flag.
	queueWait = time.Second

	// stopJoinTimeout is how long Stop waits for the consumer before
	// returning anyway.
	stopJoinTimeout = 2 * time.Second
)

// Capture produces fixed-size audio blocks from an input device. The
// callback runs in the audio subsystem's context.
type Capture interface {
	Start(onBlock func(samples []float32)) error
	Stop() error
}

// VoiceGate lets the streaming pipeline skip inference on windows with
// no detected speech. Optional.
type VoiceGate interface {
	HasVoice(samples []float32) (bool, error)
}

// StreamOptions configure a streaming session.
type StreamOptions struct {
	SampleRate    int // 0 means 16000
	WindowSeconds int // 0 means DefaultWindowSeconds
	Language      string
	Task          asr.Task
	Gate          VoiceGate // nil disables silence skipping

	// OnResult receives the text of each completed window. OnStatus
	// receives human-readable phase descriptions. Both run on the
	// consumer goroutine; callers marshal to a UI thread themselves.
	OnResult func(text string)
	OnStatus func(status string)
}

// Stream continuously transcribes live audio. Lifecycle is
// Idle -> Recording -> Idle; there is no pause.
type Stream struct {
	engine  asr.Engine
	capture Capture
	logger  *logrus.Logger
	opts    StreamOptions

	mu        sync.Mutex
	recording bool
	stop      *Flag
	queue     chan []float32
	done      chan struct{}
}

// NewStream builds a streaming pipeline over engine and capture.
func NewStream(engine asr.Engine, capture Capture, logger *logrus.Logger, opts StreamOptions) *Stream {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = DefaultWindowSeconds
	}
	if opts.Task == "" {
		opts.Task = asr.TaskTranscribe
	}
	return &Stream{engine: engine, capture: capture, logger: logger, opts: opts}
}

// Start transitions Idle -> Recording: launches the consumer and opens
// the capture device.
func (s *Stream) Start() error {
	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return fmt.Errorf("already recording")
	}
	s.recording = true
	s.stop = &Flag{}
	s.queue = make(chan []float32, streamQueueBlocks)
	s.done = make(chan struct{})
	stop, queue, done := s.stop, s.queue, s.done
	s.mu.Unlock()

	s.status("starting")
	go s.consume(stop, queue, done)

	err := s.capture.Start(func(samples []float32) {
		if stop.IsSet() {
			return
		}
		block := make([]float32, len(samples))
		copy(block, samples)
		select {
		case queue <- block:
		default:
			s.logger.Warn("audio queue full, dropping block")
		}
	})
	if err != nil {
		stop.Set()
		<-done
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}

	s.status("waiting for audio")
	return nil
}

// Stop transitions Recording -> Idle: signals the consumer, stops the
// device, joins with a bounded timeout, and discards queued audio. The
// join is best effort; a consumer stuck inside an inference call is
// abandoned after the timeout.
func (s *Stream) Stop() {
	// The lock only guards the state flip; the join and the status
	// callbacks run outside it so callbacks may call back into Stream.
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return
	}
	s.recording = false
	stop, queue, done := s.stop, s.queue, s.done
	s.mu.Unlock()

	s.status("stopping")
	stop.Set()
	if err := s.capture.Stop(); err != nil {
		s.logger.Warnf("capture stop: %v", err)
	}

	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		s.logger.Warn("stream worker did not finish within join timeout")
	}

	// Discard whatever audio was never consumed.
	for {
		select {
		case <-queue:
		default:
			s.status("stopped")
			return
		}
	}
}

// Recording reports whether the stream is in the Recording state.
func (s *Stream) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

func (s *Stream) consume(stop *Flag, queue <-chan []float32, done chan struct{}) {
	defer close(done)

	windowSamples := s.opts.SampleRate * s.opts.WindowSeconds
	buffer := make([]float32, 0, windowSamples)

	engineOpts := asr.Options{Language: s.opts.Language, Task: s.opts.Task}
	if engineOpts.Language == "auto" {
		engineOpts.Language = ""
	}

	timer := time.NewTimer(queueWait)
	defer timer.Stop()

	for !stop.IsSet() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(queueWait)

		select {
		case block := <-queue:
			buffer = append(buffer, block...)
			if len(buffer) < windowSamples {
				continue
			}
			if !s.processWindow(buffer, engineOpts) {
				return
			}
			buffer = buffer[:0]
		case <-timer.C:
			// idle; loop to re-check the stop flag
		}
	}
}

// processWindow runs inference on one accumulated buffer. Returns
// false when the consumer loop must terminate.
func (s *Stream) processWindow(buffer []float32, opts asr.Options) bool {
	if s.opts.Gate != nil {
		voiced, err := s.opts.Gate.HasVoice(buffer)
		if err != nil {
			s.logger.Warnf("voice gate: %v", err)
		} else if !voiced {
			s.status("waiting for audio")
			return true
		}
	}

	s.status("processing chunk")
	res, err := s.engine.Transcribe(context.Background(), buffer, opts)
	if err != nil {
		// A failed engine terminates the consumer; it does not restart.
		s.status(fmt.Sprintf("transcription error: %v", err))
		s.logger.Errorf("stream transcribe: %v", err)
		return false
	}
	if text := strings.TrimSpace(res.Text); text != "" && s.opts.OnResult != nil {
		s.opts.OnResult(text)
	}
	s.status("waiting for audio")
	return true
}

func (s *Stream) status(msg string) {
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(msg)
	}
}
