package reaction

import (
	"iter"
	"time"
)

// History keeps the most recent outcomes in insertion order, evicting the
// oldest once capacity is reached. It is not safe for concurrent use; the
// Game guards its History with its own lock.
type History struct {
	items []Outcome // ring buffer, len == capacity
	head  int       // index of the oldest entry
	size  int
}

// NewHistory creates a history holding at most capacity outcomes.
// A capacity of zero or less keeps nothing.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{items: make([]Outcome, capacity)}
}

// Add appends o, dropping the oldest entry if the history is full.
func (h *History) Add(o Outcome) {
	capacity := len(h.items)
	if capacity == 0 {
		return
	}

	if h.size < capacity {
		h.items[(h.head+h.size)%capacity] = o
		h.size++
		return
	}

	// Full: overwrite the oldest slot and move head past it.
	h.items[h.head] = o
	h.head = (h.head + 1) % capacity
}

// Len returns the number of stored outcomes.
func (h *History) Len() int {
	return h.size
}

// Cap returns the maximum number of stored outcomes.
func (h *History) Cap() int {
	return len(h.items)
}

// Outcomes returns a copy of the stored outcomes, oldest first.
func (h *History) Outcomes() []Outcome {
	out := make([]Outcome, h.size)
	for i := range h.size {
		out[i] = h.items[(h.head+i)%len(h.items)]
	}
	return out
}

// Snapshot returns a restartable sequence over the outcomes stored at the
// time of the call, oldest first. Later Adds do not affect it.
func (h *History) Snapshot() iter.Seq[Outcome] {
	outcomes := h.Outcomes()
	return func(yield func(Outcome) bool) {
		for _, o := range outcomes {
			if !yield(o) {
				return
			}
		}
	}
}

// Average returns the mean reaction time over Success entries.
// The second result is false when there are none.
func (h *History) Average() (time.Duration, bool) {
	return averageOf(h.Snapshot())
}

// View returns an immutable copy suitable for handing to a Port.
func (h *History) View() HistoryView {
	avg, ok := h.Average()
	return HistoryView{
		Outcomes:   h.Outcomes(),
		Average:    avg,
		HasAverage: ok,
	}
}

func averageOf(outcomes iter.Seq[Outcome]) (time.Duration, bool) {
	var sum time.Duration
	var n int
	for o := range outcomes {
		switch o := o.(type) {
		case Success:
			sum += o.ReactionTime
			n++
		case TooSoon, TimedOut:
			// shown individually, excluded from the mean
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / time.Duration(n), true
}
