package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events for the same path. A pipeline write
// usually produces several events (truncate, write, chmod, or a rename into
// place); they collapse into one according to these rules:
//   - CREATE + MODIFY = CREATE
//   - CREATE + DELETE = nothing
//   - MODIFY + DELETE = DELETE
//   - DELETE + CREATE = MODIFY
type Debouncer struct {
	window  time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]*pendingEvent
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event   FileEvent
	firstOp Operation
}

// NewDebouncer creates a debouncer that emits a batch once window has passed
// without new events.
func NewDebouncer(window time.Duration, logger *slog.Logger) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		window:  window,
		logger:  logger,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add queues an event, merging it with any pending event for the same path.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		merged, keep := coalesce(existing.firstOp, existing.event, event)
		if keep {
			existing.event = merged
		} else {
			delete(d.pending, event.Path)
		}
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, firstOp: event.Operation}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges next into a pending event whose first operation was first.
// It reports false when the two cancel out.
func coalesce(first Operation, pending, next FileEvent) (FileEvent, bool) {
	switch first {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			return pending, true
		case OpDelete:
			return FileEvent{}, false
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
		}
	}
	return next, true
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		batch = append(batch, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- batch:
	default:
		d.logger.Warn("debouncer_output_full",
			slog.Int("batch_size", len(batch)))
	}
}

// Output returns the channel of coalesced batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes Output. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
