package pipeline

import (
	"context"
	"testing"
	"time"

	"echoscript/internal/asr"
	"echoscript/internal/logging"

	"github.com/google/uuid"
)

func collectEvents(t *testing.T, job *Job) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-job.Events:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("job never finished; events so far: %v", events)
		}
	}
}

func TestStartJobEmitsProgressAndCompletion(t *testing.T) {
	path := writeTestWAV(t, 45)
	engine := &fakeEngine{replies: [][]asr.Segment{
		{{Start: 0, End: 5, Text: "hello"}},
		{{Start: 2, End: 4, Text: "world"}},
	}}
	b := NewBatch(engine, logging.NewTestLogger())

	job := b.StartJob(context.Background(), path, BatchOptions{})
	if job.ID == uuid.Nil {
		t.Fatalf("job must be tagged with an id")
	}
	events := collectEvents(t, job)

	var progress, completed, done int
	var result *Result
	for _, ev := range events {
		switch ev.Kind {
		case EventProgress:
			progress++
		case EventCompleted:
			completed++
			result = ev.Result
		case EventDone:
			done++
		}
	}
	if progress != 2 || completed != 1 || done != 1 {
		t.Fatalf("event counts progress=%d completed=%d done=%d", progress, completed, done)
	}
	if events[len(events)-1].Kind != EventDone {
		t.Fatalf("last event must be done, got %v", events[len(events)-1].Kind)
	}
	if result == nil || result.Text != "hello world" {
		t.Fatalf("completed result got %+v", result)
	}
}

func TestStartJobFailureEvent(t *testing.T) {
	b := NewBatch(&fakeEngine{}, logging.NewTestLogger())
	job := b.StartJob(context.Background(), "/nonexistent/audio.wav", BatchOptions{})
	events := collectEvents(t, job)

	var failed bool
	for _, ev := range events {
		if ev.Kind == EventFailed {
			failed = true
		}
		if ev.Kind == EventCompleted {
			t.Fatalf("failed job must not complete")
		}
	}
	if !failed {
		t.Fatalf("expected a failed event, got %v", events)
	}
}

func TestJobCancel(t *testing.T) {
	path := writeTestWAV(t, 45)
	engine := &fakeEngine{}
	b := NewBatch(engine, logging.NewTestLogger())

	cancel := &Flag{}
	cancel.Set()
	job := b.StartJob(context.Background(), path, BatchOptions{Cancel: cancel})
	events := collectEvents(t, job)

	var result *Result
	for _, ev := range events {
		if ev.Kind == EventCompleted {
			result = ev.Result
		}
		if ev.Kind == EventProgress {
			t.Fatalf("cancelled-before-start job must not report progress")
		}
	}
	if result == nil || !result.Cancelled {
		t.Fatalf("expected cancelled result, got %+v", result)
	}
}
