package synth

import (
	"fmt"
	"strings"
)

type Curve uint8

const (
	Linear Curve = iota
	Exponential
)

func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(s) {
	case "", "linear", "lin":
		return Linear, nil
	case "exponential", "exp":
		return Exponential, nil
	}
	return 0, fmt.Errorf("unknown curve %q", s)
}

func (c Curve) String() string {
	if c == Exponential {
		return "exponential"
	}
	return "linear"
}

// A Ramp moves a value between set-points along a one-shot 0→1 LFO feeding a
// ConstrainedLerp block.  It drives filter envelopes, pitch glides and any
// other parameter that needs a shaped attack and release.
type Ramp struct {
	pos   *Block
	sq    *Block // pos squared, for the exponential curve
	lerp  *Block
	curve Curve
}

const minRampTime = 1e-6

func NewRamp(g *Graph, start float64, curve Curve) *Ramp {
	r := &Ramp{}
	r.pos = g.LFO(LFOConfig{
		Waveform:    rampWave(),
		Scale:       Const(1),
		Once:        true,
		Interpolate: true,
	})
	r.sq = g.Math(Product, From(r.pos), From(r.pos), Const(1))
	r.lerp = g.Lerp(Const(start), Const(start), From(r.pos))
	r.SetCurve(curve)
	r.finish()
	return r
}

// SetCurve selects the shape of subsequent and in-progress moves.
func (r *Ramp) SetCurve(c Curve) {
	r.curve = c
	if c == Exponential {
		r.lerp.c = From(r.sq)
	} else {
		r.lerp.c = From(r.pos)
	}
}

// Output is the block to attach to a parameter.
func (r *Ramp) Output() *Block { return r.lerp }

// Value is the output of the most recent block.
func (r *Ramp) Value() float64 { return r.lerp.value }

// Target is the set-point the ramp is heading for.
func (r *Ramp) Target() float64 { return r.lerp.b.c }

// Done reports whether the ramp has reached its target.
func (r *Ramp) Done() bool { return r.pos.Done() }

// Current is the value the ramp will output in the next block.
func (r *Ramp) Current() float64 {
	t := clamp01(r.pos.phase)
	if r.curve == Exponential {
		t *= t
	}
	return Lerp(r.lerp.a.c, r.lerp.b.c, t)
}

// Set restarts the ramp from 'from' to 'to' over the given time.
func (r *Ramp) Set(from, to, seconds float64) {
	r.lerp.a = Const(from)
	r.lerp.b = Const(to)
	if seconds <= minRampTime {
		r.Jump(to)
		return
	}
	r.pos.rate = Const(1 / seconds)
	r.pos.Retrigger()
}

// To restarts the ramp from wherever it currently is.
func (r *Ramp) To(target, seconds float64) {
	r.Set(r.Current(), target, seconds)
}

// Jump moves the output to v immediately.
func (r *Ramp) Jump(v float64) {
	r.lerp.a = Const(v)
	r.lerp.b = Const(v)
	r.finish()
	r.lerp.value = v
}

func (r *Ramp) finish() {
	r.pos.phase = 1
	r.pos.value = 1
}
