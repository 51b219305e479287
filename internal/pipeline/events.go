package pipeline

// EventKind discriminates Event variants.
type EventKind int

const (
	EventProgress EventKind = iota
	EventStatus
	EventPartial
	EventCompleted
	EventFailed
	EventDone
)

// Event is one message from a job worker to its driver. The driver
// owns no pipeline state; everything it needs arrives here.
type Event struct {
	Kind EventKind

	// Progress
	ChunksDone  int
	ChunksTotal int

	// Status, Partial, Failed
	Text string

	// Completed
	Result *Result
}

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventStatus:
		return "status"
	case EventPartial:
		return "partial"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventDone:
		return "done"
	}
	return "unknown"
}
