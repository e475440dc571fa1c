package synth

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	// MaxSample is full scale for waveform tables.
	MaxSample = 32767

	// WaveLen is the length of the built-in waveforms.
	WaveLen = 256
)

// A Waveform is a cyclic table of 16-bit samples.  Tables handed to the
// engine are read-only; the only in-place writer is Morph on a voice's own
// table.
type Waveform struct {
	s []int16
}

func NewWaveform(samples []int16) (*Waveform, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty waveform", ErrInvalidParameter)
	}
	w := &Waveform{s: make([]int16, len(samples))}
	for i, x := range samples {
		if x < -MaxSample {
			x = -MaxSample
		}
		w.s[i] = x
	}
	return w, nil
}

// NewWaveformFunc samples f over one cycle; f returns values in [-1, 1].
func NewWaveformFunc(n int, f func(phase float64) float64) (*Waveform, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: waveform length %d", ErrInvalidParameter, n)
	}
	s := make([]int16, n)
	for i := range s {
		s[i] = toSample(f(float64(i) / float64(n)))
	}
	return NewWaveform(s)
}

func toSample(x float64) int16 {
	x = math.Max(-1, math.Min(1, x))
	return int16(math.Round(x * MaxSample))
}

func (w *Waveform) Len() int { return len(w.s) }

// At returns sample i (wrapped) scaled to [-1, 1].
func (w *Waveform) At(i int) float64 {
	n := len(w.s)
	i %= n
	if i < 0 {
		i += n
	}
	return float64(w.s[i]) / MaxSample
}

// Lookup reads the table at a fractional position in samples.
func (w *Waveform) Lookup(pos float64, interpolate bool) float64 {
	i := int(math.Floor(pos))
	if !interpolate {
		return w.At(i)
	}
	t := pos - float64(i)
	if t == 0 {
		return w.At(i)
	}
	a, b := w.At(i), w.At(i+1)
	return a + (b-a)*t
}

// Samples returns a copy of the table.
func (w *Waveform) Samples() []int16 {
	return append([]int16(nil), w.s...)
}

// Morph writes the linear mix (1-t)*a + t*b into dst in place.  All three
// tables must have the same length.
func Morph(dst, a, b *Waveform, t float64) {
	t = math.Max(0, math.Min(1, t))
	for i := range dst.s {
		x := (1-t)*float64(a.s[i]) + t*float64(b.s[i])
		dst.s[i] = int16(math.Round(x))
	}
}

// A WaveBank resolves waveform names in patches.
type WaveBank map[string]*Waveform

// Names returns the sorted waveform names.
func (b WaveBank) Names() []string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func DefaultWaveBank() WaveBank {
	return WaveBank{
		"sine":     SineWave(),
		"saw":      SawWave(),
		"square":   SquareWave(),
		"triangle": TriangleWave(),
		"noise":    NoiseWave(1),
	}
}

func mustWave(n int, f func(float64) float64) *Waveform {
	w, err := NewWaveformFunc(n, f)
	if err != nil {
		panic(err)
	}
	return w
}

func SineWave() *Waveform {
	return mustWave(WaveLen, func(p float64) float64 { return math.Sin(2 * math.Pi * p) })
}

// SawWave falls from full scale to negative full scale.
func SawWave() *Waveform {
	return mustWave(WaveLen, func(p float64) float64 { return 1 - 2*p })
}

func SquareWave() *Waveform {
	return mustWave(WaveLen, func(p float64) float64 {
		if p < .5 {
			return 1
		}
		return -1
	})
}

// TriangleWave starts at 0, peaks at a quarter cycle and bottoms out at
// three quarters.
func TriangleWave() *Waveform {
	return mustWave(WaveLen, func(p float64) float64 {
		switch {
		case p < .25:
			return 4 * p
		case p < .75:
			return 2 - 4*p
		}
		return 4*p - 4
	})
}

// NoiseWave is a deterministic table of uniform noise.
func NoiseWave(seed int64) *Waveform {
	r := rand.New(rand.NewSource(seed))
	return mustWave(WaveLen, func(float64) float64 { return 2*r.Float64() - 1 })
}

// rampWave is the two-point 0→1 table that drives one-shot ramps.
func rampWave() *Waveform {
	w, _ := NewWaveform([]int16{0, MaxSample})
	return w
}

// lfoTriangle is the default LFO shape: 0, 1, 0, -1.
func lfoTriangle() *Waveform {
	w, _ := NewWaveform([]int16{0, MaxSample, 0, -MaxSample})
	return w
}
