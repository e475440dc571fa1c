package synth

import (
	"fmt"
	"sync"
)

// A Key identifies a note.  For MIDI input it is the note number.
type Key int

// An Event is one of NoteOn, NoteOff, ControlChange, PitchBend or
// ProgramChange.
type Event interface {
	event()
}

// NoteOn with velocity 0 is a NoteOff.
type NoteOn struct {
	Key      Key
	Velocity uint8
}

type NoteOff struct {
	Key      Key
	Velocity uint8
}

type ControlChange struct {
	ID    uint8
	Value uint8
}

// PitchBend amounts range over [-1, 1].
type PitchBend struct {
	Amount float64
}

type ProgramChange struct {
	Program int
}

func (NoteOn) event()        {}
func (NoteOff) event()       {}
func (ControlChange) event() {}
func (PitchBend) event()     {}
func (ProgramChange) event() {}

func (e NoteOn) String() string  { return fmt.Sprintf("NoteOn(%d, %d)", e.Key, e.Velocity) }
func (e NoteOff) String() string { return fmt.Sprintf("NoteOff(%d, %d)", e.Key, e.Velocity) }
func (e ControlChange) String() string {
	return fmt.Sprintf("ControlChange(%d, %d)", e.ID, e.Value)
}
func (e PitchBend) String() string     { return fmt.Sprintf("PitchBend(%.3f)", e.Amount) }
func (e ProgramChange) String() string { return fmt.Sprintf("ProgramChange(%d)", e.Program) }

// eventQueue is a bounded FIFO shared by event sources and the render loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	head   int
	n      int
}

func newEventQueue(size int) *eventQueue {
	return &eventQueue{events: make([]Event, size)}
}

func (q *eventQueue) push(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.events) {
		return ErrQueueFull
	}
	q.events[(q.head+q.n)%len(q.events)] = ev
	q.n++
	return nil
}

// drain calls f on every queued event in order.  Events pushed while
// draining wait for the next call.
func (q *eventQueue) drain(f func(Event)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for ; q.n > 0; q.n-- {
		ev := q.events[q.head]
		q.events[q.head] = nil
		q.head = (q.head + 1) % len(q.events)
		f(ev)
	}
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}
