package synth

import "math"

// A DelayLine remembers the last maxDelay seconds of a signal and reads it
// back at any delay, interpolating between samples.
type DelayLine struct {
	maxDelay float64
	buf      Audio
	i        int // next write
}

func NewDelayLine(maxDelay float64) *DelayLine {
	return &DelayLine{maxDelay: maxDelay}
}

func (d *DelayLine) InitAudio(p Params) {
	d.buf = make(Audio, max(1, int(math.Ceil(d.maxDelay*p.SampleRate)))+2)
	d.i = 0
}

// Len is the longest delay in samples.
func (d *DelayLine) Len() int { return len(d.buf) - 2 }

// Write appends x.
func (d *DelayLine) Write(x float64) {
	d.buf[d.i] = x
	d.i++
	if d.i == len(d.buf) {
		d.i = 0
	}
}

// Tap returns the sample written n writes ago, for n in [1, Len()].
// Fractional n interpolates.
func (d *DelayLine) Tap(n float64) float64 {
	if !(n >= 1) {
		n = 1
	}
	if m := float64(d.Len()); n > m {
		n = m
	}
	k := int(n)
	t := n - float64(k)
	a := d.at(k)
	if t == 0 {
		return a
	}
	return a + (d.at(k+1)-a)*t
}

func (d *DelayLine) at(k int) float64 {
	j := d.i - k
	if j < 0 {
		j += len(d.buf)
	}
	return d.buf[j]
}

// Reset silences the line.
func (d *DelayLine) Reset() {
	d.buf.Zero()
}

// An Echo is a feedback delay.  A long delay repeats the signal; a short one
// swept by an LFO is a chorus without feedback or a flanger with it.
type Echo struct {
	line       *DelayLine
	sampleRate float64
	delay      float64 // samples, at the end of the last block
	started    bool
}

func NewEcho(maxDelay float64) *Echo {
	return &Echo{line: NewDelayLine(maxDelay)}
}

func (e *Echo) InitAudio(p Params) {
	e.sampleRate = p.SampleRate
	e.line.InitAudio(p)
	e.started = false
}

// MaxDelay is the longest delay in seconds.
func (e *Echo) MaxDelay() float64 { return float64(e.line.Len()) / e.sampleRate }

// Process runs a through the echo in place.  delay is in seconds, decay is
// the feedback gain and mix goes from dry (0) to wet (1).  Delay changes glide
// across the block.
func (e *Echo) Process(a Audio, delay, decay, mix float64) Audio {
	d := delay * e.sampleRate
	if !(d >= 1) {
		d = 1
	}
	d = math.Min(d, float64(e.line.Len()))
	if !e.started {
		e.delay, e.started = d, true
	}
	decay = math.Max(0, math.Min(maxEchoDecay, decay))
	if math.IsNaN(decay) {
		decay = 0
	}
	mix = clamp01(mix)
	if math.IsNaN(mix) {
		mix = 0
	}

	step := (d - e.delay) / float64(len(a))
	for i, x := range a {
		wet := e.line.Tap(e.delay + step*float64(i+1))
		e.line.Write(x + decay*wet)
		a[i] = x + (wet-x)*mix
	}
	e.delay = d
	return a
}

// Reset silences the echo tail.
func (e *Echo) Reset() { e.line.Reset() }

const maxEchoDecay = .99
