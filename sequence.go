package synth

import (
	"math"
	"sort"
)

// Timed is an event at a time in seconds from the start of a sequence.
type Timed struct {
	Time  float64
	Event Event
}

type Sequence struct {
	Name   string
	Events []Timed
}

// Sort orders the events by time, keeping the order of simultaneous events.
func (q *Sequence) Sort() {
	sort.Stable(eventsByTime(q.Events))
}

// Duration is the time of the last event with a finite time.
func (q *Sequence) Duration() float64 {
	d := 0.0
	for _, e := range q.Events {
		if finite(e.Time) {
			d = math.Max(d, e.Time)
		}
	}
	return d
}

type eventsByTime []Timed

func (e eventsByTime) Len() int           { return len(e) }
func (e eventsByTime) Less(i, j int) bool { return e[i].Time < e[j].Time }
func (e eventsByTime) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }

// A Sequencer plays a Sequence into a Synth.  Events take effect at the start
// of the block they fall in.
type Sequencer struct {
	synth   *Synth
	seq     *Sequence
	rate    float64
	i       int
	frame   int64
	delayed []delayedEvent
}

type delayedEvent struct {
	frame int64
	ev    Event
}

// NewSequencer sorts seq and drops its events whose times are not finite.
func NewSequencer(s *Synth, seq *Sequence) *Sequencer {
	if seq == nil {
		seq = &Sequence{}
	}
	events := seq.Events[:0]
	for _, e := range seq.Events {
		if finite(e.Time) {
			events = append(events, e)
		}
	}
	seq.Events = events
	seq.Sort()
	return &Sequencer{synth: s, seq: seq, rate: s.params.SampleRate}
}

func (p *Sequencer) Synth() *Synth { return p.synth }

func (p *Sequencer) Sequence() *Sequence { return p.seq }

func (p *Sequencer) Time() float64 { return float64(p.frame) / p.rate }

// SetTime moves the play position.  Events before t are skipped.
func (p *Sequencer) SetTime(t float64) {
	p.frame = p.toFrame(t)
	for p.i = 0; p.i < len(p.seq.Events) && p.toFrame(p.seq.Events[p.i].Time) < p.frame; p.i++ {
	}
}

func (p *Sequencer) toFrame(t float64) int64 {
	f := math.Round(t * p.rate)
	switch {
	case !(f > 0):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(f)
}

// After schedules ev to play t seconds from now.  Times that are negative or
// NaN mean now.
func (p *Sequencer) After(t float64, ev Event) {
	f := p.frame + min(p.toFrame(t), math.MaxInt64-p.frame)
	i := 0
	for ; i < len(p.delayed) && p.delayed[i].frame <= f; i++ {
	}
	p.delayed = append(p.delayed, delayedEvent{})
	copy(p.delayed[i+1:], p.delayed[i:])
	p.delayed[i] = delayedEvent{f, ev}
}

// Advance plays every event that falls within the next frames and moves the
// play position past them.
func (p *Sequencer) Advance(frames int) {
	end := p.frame + int64(frames)
	for ; p.i < len(p.seq.Events); p.i++ {
		e := p.seq.Events[p.i]
		if p.toFrame(e.Time) >= end {
			break
		}
		p.synth.handle(e.Event)
	}
	for len(p.delayed) > 0 && p.delayed[0].frame < end {
		p.synth.handle(p.delayed[0].ev)
		p.delayed = p.delayed[1:]
	}
	p.frame = end
}

// Render advances the sequence and renders the synth into out one block at a
// time.
func (p *Sequencer) Render(out []float32) {
	ch := p.synth.params.Channels
	block := p.synth.params.BlockSize * ch
	for len(out) > 0 {
		n := min(block, len(out))
		p.Advance(n / ch)
		p.synth.Render(out[:n])
		out = out[n:]
	}
}

// Done reports whether every event has played and every voice is silent.
func (p *Sequencer) Done() bool {
	return p.i == len(p.seq.Events) && len(p.delayed) == 0 && p.synth.Sounding() == 0
}
