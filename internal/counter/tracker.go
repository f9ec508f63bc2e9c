// Package counter assigns short sequence numbers to distinct metadata values.
package counter

import (
	"sort"
	"sync"

	"github.com/harrison/dicomsort/internal/pattern"
)

// sequence holds the assignments of one counter.
type sequence struct {
	assigned map[string]int
	order    []string
}

// Tracker maps distinct values to integers, independently per counter.
// The first value seen by a counter gets 0, the next new value 1, and so on;
// a value seen again gets its earlier number back. One Tracker lives for one
// sort job and is never persisted.
type Tracker struct {
	mu       sync.Mutex
	counters map[pattern.CounterID]*sequence
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		counters: make(map[pattern.CounterID]*sequence),
	}
}

// SequenceNumber returns the number assigned to value under counter id,
// assigning the next free number if value has not been seen before.
func (t *Tracker) SequenceNumber(id pattern.CounterID, value string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, ok := t.counters[id]
	if !ok {
		seq = &sequence{assigned: make(map[string]int)}
		t.counters[id] = seq
	}

	if n, seen := seq.assigned[value]; seen {
		return n
	}

	n := len(seq.order)
	seq.assigned[value] = n
	seq.order = append(seq.order, value)
	return n
}

// Lookup returns the number already assigned to value, without assigning one.
func (t *Tracker) Lookup(id pattern.CounterID, value string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, ok := t.counters[id]
	if !ok {
		return 0, false
	}
	n, ok := seq.assigned[value]
	return n, ok
}

// Len returns how many distinct values counter id has seen.
func (t *Tracker) Len(id pattern.CounterID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq, ok := t.counters[id]; ok {
		return len(seq.order)
	}
	return 0
}

// Assignment is one value and the number it received.
type Assignment struct {
	Counter pattern.CounterID
	Number  int
	Value   string
}

// Snapshot lists every assignment, ordered by counter then number.
func (t *Tracker) Snapshot() []Assignment {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]pattern.CounterID, 0, len(t.counters))
	for id := range t.counters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []Assignment
	for _, id := range ids {
		for n, value := range t.counters[id].order {
			out = append(out, Assignment{Counter: id, Number: n, Value: value})
		}
	}
	return out
}
