package synth

import "math"

// RMS measures the root-mean-square amplitude over a sliding window.
type RMS struct {
	windowSize float64
	buf        Audio
	i          int
	sum        float64
}

func NewRMS(windowSize float64) *RMS {
	return &RMS{windowSize: windowSize}
}

func (r *RMS) InitAudio(p Params) {
	n := int(p.SampleRate * r.windowSize)
	if n < 1 {
		n = 1
	}
	r.buf = make(Audio, n)
	r.i = 0
	r.sum = 0
}

func (r *RMS) Add(x float64) {
	r.sum -= r.buf[r.i]
	r.buf[r.i] = x * x
	r.sum += r.buf[r.i]
	r.i = (r.i + 1) % len(r.buf)
}

func (r *RMS) Amplitude() float64 {
	if r.sum <= 0 {
		// rounding can leave the running sum slightly negative
		return 0
	}
	return math.Sqrt(r.sum / float64(len(r.buf)))
}

// Measure adds every sample of a and returns the resulting amplitude.
func (r *RMS) Measure(a Audio) float64 {
	for _, x := range a {
		r.Add(x)
	}
	return r.Amplitude()
}
