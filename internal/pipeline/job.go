package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Job is a single batch invocation running on its own goroutine. The
// event channel closes after EventDone; the driver must drain it.
type Job struct {
	ID     uuid.UUID
	Events <-chan Event

	cancel *Flag
}

// Cancel requests cooperative cancellation. The job stops before the
// next chunk; an in-flight inference call finishes first.
func (j *Job) Cancel() { j.cancel.Set() }

// StartJob runs the batch pipeline in the background and reports
// through a typed event channel instead of shared mutable state.
func (b *Batch) StartJob(ctx context.Context, path string, opts BatchOptions) *Job {
	if opts.Cancel == nil {
		opts.Cancel = &Flag{}
	}
	events := make(chan Event, 16)
	job := &Job{
		ID:     uuid.New(),
		Events: events,
		cancel: opts.Cancel,
	}

	userProgress := opts.Progress
	opts.Progress = func(done, total int) {
		if userProgress != nil {
			userProgress(done, total)
		}
		events <- Event{Kind: EventProgress, ChunksDone: done, ChunksTotal: total}
	}

	go func() {
		defer close(events)
		events <- Event{Kind: EventStatus, Text: "starting"}
		res := b.Run(ctx, path, opts)
		switch {
		case res.Cancelled:
			events <- Event{Kind: EventStatus, Text: "cancelled"}
			events <- Event{Kind: EventCompleted, Result: &res}
		case res.Text == "" && len(res.Segments) == 0:
			events <- Event{Kind: EventFailed, Text: "transcription produced no output; see log for details"}
		default:
			events <- Event{Kind: EventCompleted, Result: &res}
		}
		events <- Event{Kind: EventDone}
	}()
	return job
}
