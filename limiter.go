package synth

import "math"

// A Limiter is the soft limiter on the master bus.  It looks ahead by the
// attack time and steers its gain so that the RMS level of the output
// (averaged over the attack time) approaches limit.  Peaks may still exceed
// limit.  The gain never rises above 1.
type Limiter struct {
	limit         float64
	attack, decay float64
	down, up      float64 // gain change per sample, in octaves
	amp           float64 // gain in octaves
	rms           *RMS
	ahead         *DelayLine
	lookahead     float64 // samples
}

func NewLimiter(limit, attack, decay float64) *Limiter {
	return &Limiter{limit: limit, attack: attack, decay: decay, rms: NewRMS(attack), ahead: NewDelayLine(attack)}
}

func (l *Limiter) InitAudio(p Params) {
	l.down = -1 / (l.attack * p.SampleRate)
	l.up = 1 / (l.decay * p.SampleRate)
	l.amp = 0
	l.rms.InitAudio(p)
	l.ahead.InitAudio(p)
	l.lookahead = float64(max(1, int(l.attack*p.SampleRate)))
}

// Gain is the current gain factor.
func (l *Limiter) Gain() float64 { return math.Exp2(l.amp) }

// Limit takes the next input sample and returns the output sample from the
// attack time ago.
func (l *Limiter) Limit(x float64) float64 {
	gain := math.Exp2(l.amp)
	l.rms.Add(x)
	target := 1.0
	if y := l.rms.Amplitude() / l.limit; y > 0 {
		target = math.Tanh(y) / y
	}
	if target < gain {
		l.amp += l.down
	} else if l.amp < 0 {
		l.amp = math.Min(0, l.amp+l.up)
	}

	y := l.ahead.Tap(l.lookahead)
	l.ahead.Write(x)
	return gain * y
}
