package synth

import "math"

// BendUnit says how a pitch bend value is scaled into a frequency ratio.
type BendUnit uint8

const (
	Octaves   BendUnit = iota // ratio 2^b
	Semitones                 // ratio 2^(b/12)
)

// Ratio converts a bend amount into a frequency multiplier.
func (u BendUnit) Ratio(b float64) float64 {
	if u == Semitones {
		b /= 12
	}
	return math.Exp2(b)
}

func MIDIToHz(key float64) float64 {
	return 440 * math.Exp2((key-69)/12)
}

// An Oscillator plays a Waveform by phase accumulation.  The phase is kept in
// table samples, in [0, len).
type Oscillator struct {
	Interpolate bool
	Params      Params
	wave        *Waveform
	freq        float64
	bend        float64 // ratio
	phase       float64
	inc         float64
}

func (o *Oscillator) InitAudio(p Params) {
	o.Params = p
	if o.bend == 0 {
		o.bend = 1
	}
	o.update()
}

func (o *Oscillator) Waveform() *Waveform { return o.wave }

// SetWaveform swaps the table.  The phase carries over, rescaled when the
// new table has a different length.
func (o *Oscillator) SetWaveform(w *Waveform) {
	if w == nil {
		return
	}
	if o.wave != nil && o.wave.Len() != w.Len() {
		o.phase *= float64(w.Len()) / float64(o.wave.Len())
		o.phase = wrap(o.phase, float64(w.Len()))
	}
	o.wave = w
	o.update()
}

func (o *Oscillator) Frequency() float64 { return o.freq * o.bend }

func (o *Oscillator) SetFrequency(hz float64) {
	o.freq = hz
	o.update()
}

// SetBend sets the bend applied on top of the base frequency.
func (o *Oscillator) SetBend(b float64, unit BendUnit) {
	o.bend = unit.Ratio(b)
	o.update()
}

func (o *Oscillator) Phase() float64 { return o.phase }

func (o *Oscillator) Reset() { o.phase = 0 }

func (o *Oscillator) update() {
	if o.wave == nil || o.Params.SampleRate == 0 {
		o.inc = 0
		return
	}
	o.inc = float64(o.wave.Len()) * o.freq * o.bend / o.Params.SampleRate
}

// Next returns the sample at the current phase and advances it.
func (o *Oscillator) Next() float64 {
	if o.wave == nil {
		return 0
	}
	x := o.wave.Lookup(o.phase, o.Interpolate)
	o.phase = wrap(o.phase+o.inc, float64(o.wave.Len()))
	return x
}

// Fill writes successive samples into a.
func (o *Oscillator) Fill(a Audio) Audio {
	for i := range a {
		a[i] = o.Next()
	}
	return a
}

func wrap(x, n float64) float64 {
	if x >= n || x < 0 {
		x = math.Mod(x, n)
		if x < 0 {
			x += n
		}
		if x >= n {
			x = 0
		}
	}
	return x
}
