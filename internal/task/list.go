package task

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrUnknownTask is returned when an id is not present in the list.
	ErrUnknownTask = errors.New("unknown task id")
	// ErrInvalidTransition is returned when a mark would rewrite a
	// terminal task or skip the lifecycle order.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound is returned by fuzzy resolution below the similarity
	// threshold.
	ErrNotFound = errors.New("task not found")
)

// Record is one unit of decomposed work.
type Record struct {
	ID            int      `json:"id"`
	Description   string   `json:"description"`
	Status        Status   `json:"status"`
	AssignedTools []string `json:"assigned_tools,omitempty"`
	ResultSummary string   `json:"result_summary,omitempty"`
	ProducedPaths []string `json:"produced_paths,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// Terminal reports whether the record can no longer change.
func (r *Record) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// List is an ordered, id-unique sequence of task records. Only the
// planner appends; the control loop marks.
type List struct {
	records []*Record
	byID    map[int]*Record
	nextID  int
}

func NewList() *List {
	return &List{byID: make(map[int]*Record), nextID: 1}
}

// Restore rebuilds a list from persisted records, preserving ids.
func Restore(records []Record) *List {
	l := NewList()
	for i := range records {
		rec := records[i]
		if _, dup := l.byID[rec.ID]; dup {
			continue
		}
		cp := rec
		l.records = append(l.records, &cp)
		l.byID[cp.ID] = &cp
		if cp.ID >= l.nextID {
			l.nextID = cp.ID + 1
		}
	}
	return l
}

// Append inserts new records at the tail. Records with a zero ID get
// the next sequential id. A record whose id already exists is
// discarded, so replans that echo terminal history are idempotent.
// Returns the records actually inserted.
func (l *List) Append(records []Record) []*Record {
	var added []*Record
	for i := range records {
		rec := records[i]
		if rec.Description == "" {
			continue
		}
		if rec.ID == 0 {
			rec.ID = l.nextID
		} else if _, dup := l.byID[rec.ID]; dup {
			continue
		}
		if rec.Status == "" {
			rec.Status = StatusPending
		}
		cp := rec
		l.records = append(l.records, &cp)
		l.byID[cp.ID] = &cp
		if cp.ID >= l.nextID {
			l.nextID = cp.ID + 1
		}
		added = append(added, &cp)
	}
	return added
}

// Mark transitions a task to a new status and records the result text.
// Terminal records are immutable: any further mark fails with
// ErrInvalidTransition.
func (l *List) Mark(id int, status Status, result string) error {
	rec, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if rec.Terminal() {
		return fmt.Errorf("%w: task %d is already %s", ErrInvalidTransition, id, rec.Status)
	}
	switch status {
	case StatusInProgress:
		if rec.Status != StatusPending {
			return fmt.Errorf("%w: task %d cannot move from %s to %s", ErrInvalidTransition, id, rec.Status, status)
		}
	case StatusCompleted, StatusFailed:
		// pending or in_progress may finish either way
	default:
		return fmt.Errorf("%w: task %d cannot move from %s to %s", ErrInvalidTransition, id, rec.Status, status)
	}
	rec.Status = status
	if status == StatusCompleted {
		rec.ResultSummary = result
	}
	if status == StatusFailed {
		rec.FailureReason = result
	}
	return nil
}

// MarkCompleted finalizes a task with its summary and produced paths.
func (l *List) MarkCompleted(id int, summary string, paths []string) error {
	if err := l.Mark(id, StatusCompleted, summary); err != nil {
		return err
	}
	l.byID[id].ProducedPaths = append([]string(nil), paths...)
	return nil
}

// MarkFailed finalizes a task with its failure reason.
func (l *List) MarkFailed(id int, reason string) error {
	return l.Mark(id, StatusFailed, reason)
}

// NextPending returns the first pending record in sequence order, or
// nil when none remain.
func (l *List) NextPending() *Record {
	for _, rec := range l.records {
		if rec.Status == StatusPending {
			return rec
		}
	}
	return nil
}

// Get returns the record with the given id, or nil.
func (l *List) Get(id int) *Record {
	return l.byID[id]
}

// All returns a copy of the records in sequence order.
func (l *List) All() []Record {
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, *rec)
	}
	return out
}

// ByStatus returns copies of records with the given status, in order.
func (l *List) ByStatus(status Status) []Record {
	var out []Record
	for _, rec := range l.records {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out
}

func (l *List) Len() int { return len(l.records) }

// AllTerminal reports whether every record is completed or failed.
func (l *List) AllTerminal() bool {
	for _, rec := range l.records {
		if !rec.Terminal() {
			return false
		}
	}
	return true
}
