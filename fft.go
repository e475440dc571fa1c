package synth

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/ktye/fft"
)

// An Analyzer measures the magnitude spectrum of a block of samples through a
// Hann window.  A full-scale sine reads as magnitude 1 in its bin.
type Analyzer struct {
	sampleRate float64
	fft        fft.FFT
	env        []float64
	gain       float64
	buf        []complex128
	mag        []float64
}

// NewAnalyzer returns an analyzer of the given size, which must be a power
// of two.
func NewAnalyzer(size int, sampleRate float64) (*Analyzer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: analyzer size %d", ErrInvalidParameter, size)
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidParameter, sampleRate)
	}
	f, err := fft.New(size)
	if err != nil {
		return nil, err
	}
	env := make([]float64, size)
	sum := 0.0
	for i := range env {
		env[i] = (1 - math.Cos(2*math.Pi*float64(i)/float64(size))) / 2
		sum += env[i]
	}
	return &Analyzer{
		sampleRate: sampleRate,
		fft:        f,
		env:        env,
		gain:       2 / sum,
		buf:        make([]complex128, size),
		mag:        make([]float64, size/2+1),
	}, nil
}

func (a *Analyzer) Size() int { return len(a.env) }

// BinFreq is the center frequency of bin i in Hz.
func (a *Analyzer) BinFreq(i int) float64 {
	return float64(i) * a.sampleRate / float64(len(a.env))
}

// Spectrum returns the magnitudes of bins 0 through Size/2 of x.  x is
// truncated or zero-padded to Size.  The result is reused by the next call.
func (a *Analyzer) Spectrum(x []float64) []float64 {
	for i := range a.buf {
		v := 0.0
		if i < len(x) {
			v = x[i] * a.env[i]
		}
		a.buf[i] = complex(v, 0)
	}
	out := a.fft.Transform(a.buf)
	for i := range a.mag {
		a.mag[i] = cmplx.Abs(out[i]) * a.gain
	}
	return a.mag
}

// Peak returns the frequency and magnitude of the strongest bin above DC.
func (a *Analyzer) Peak(x []float64) (hz, mag float64) {
	m := a.Spectrum(x)
	best := 1
	for i := 2; i < len(m); i++ {
		if m[i] > m[best] {
			best = i
		}
	}
	return a.BinFreq(best), m[best]
}

// BandEnergy is the sum of squared magnitudes of the bins in [lo, hi) Hz.
func (a *Analyzer) BandEnergy(x []float64, lo, hi float64) float64 {
	m := a.Spectrum(x)
	e := 0.0
	for i, v := range m {
		if f := a.BinFreq(i); f >= lo && f < hi {
			e += v * v
		}
	}
	return e
}
