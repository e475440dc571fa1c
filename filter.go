package synth

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

type FilterMode uint8

const (
	LowPass FilterMode = iota
	HighPass
	BandPass
	Notch
	Bypass
)

var filterModeNames = [...]string{"lpf", "hpf", "bpf", "notch", "none"}

func (m FilterMode) String() string {
	if int(m) < len(filterModeNames) {
		return filterModeNames[m]
	}
	return "unknown"
}

func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(s) {
	case "lpf", "lowpass", "low_pass":
		return LowPass, nil
	case "hpf", "highpass", "high_pass":
		return HighPass, nil
	case "bpf", "bandpass", "band_pass":
		return BandPass, nil
	case "notch":
		return Notch, nil
	case "none", "off":
		return Bypass, nil
	}
	return 0, fmt.Errorf("unknown filter mode %q", s)
}

const (
	minFilterFreq = 1e-5 // of the sample rate
	maxFilterFreq = .49
	minFilterQ    = .01
)

// A Biquad is a second-order filter whose coefficients are recomputed only
// when its mode, frequency or Q change.
type Biquad struct {
	Params Params

	mode       FilterMode
	freq, q    float64
	valid      bool
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (f *Biquad) InitAudio(p Params) {
	f.Params = p
	f.valid = false
}

func (f *Biquad) Mode() FilterMode { return f.mode }

// Frequency returns the cutoff in Hz after clamping.
func (f *Biquad) Frequency() float64 { return f.freq * f.Params.SampleRate }

func (f *Biquad) Q() float64 { return f.q }

// Set updates the filter parameters, recomputing coefficients if needed.
func (f *Biquad) Set(mode FilterMode, freq, q float64) {
	w := freq / f.Params.SampleRate
	if !(w >= minFilterFreq) {
		w = minFilterFreq
	}
	if w > maxFilterFreq {
		w = maxFilterFreq
	}
	if !(q >= minFilterQ) {
		q = minFilterQ
	}
	if f.valid && mode == f.mode && w == f.freq && q == f.q {
		return
	}
	f.mode, f.freq, f.q = mode, w, q
	f.valid = true
	f.coefficients()
}

func (f *Biquad) coefficients() {
	w0 := 2 * math.Pi * f.freq
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * f.q)
	var b0, b1, b2 float64
	switch f.mode {
	case LowPass:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
	case HighPass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
	case BandPass:
		b0, b1, b2 = alpha, 0, -alpha
	case Notch:
		b0, b1, b2 = 1, -2*cos, 1
	default:
		f.b0, f.b1, f.b2, f.a1, f.a2 = 1, 0, 0, 0, 0
		return
	}
	a0 := 1 + alpha
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = -2*cos/a0, (1-alpha)/a0
}

// Reset clears the delay line.
func (f *Biquad) Reset() { f.z1, f.z2 = 0, 0 }

func (f *Biquad) Filter(x float64) float64 {
	if f.mode == Bypass || !f.valid {
		return x
	}
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// Process filters a in place.
func (f *Biquad) Process(a Audio) Audio {
	for i, x := range a {
		a[i] = f.Filter(x)
	}
	return a
}

// Response returns the magnitude response at hz.
func (f *Biquad) Response(hz float64) float64 {
	if f.mode == Bypass || !f.valid {
		return 1
	}
	z := cmplx.Exp(complex(0, -2*math.Pi*hz/f.Params.SampleRate))
	num := complex(f.b0, 0) + complex(f.b1, 0)*z + complex(f.b2, 0)*z*z
	den := 1 + complex(f.a1, 0)*z + complex(f.a2, 0)*z*z
	return cmplx.Abs(num / den)
}

// A DCFilter removes the DC offset of a signal.
type DCFilter struct {
	a, x, y float64
}

func (f *DCFilter) InitAudio(p Params) {
	rc := 1 / (2 * math.Pi * 10)
	f.a = rc / (rc + 1/p.SampleRate)
}

func (f *DCFilter) Filter(x float64) float64 {
	f.y = f.a * (f.y + x - f.x)
	f.x = x
	return f.y
}
