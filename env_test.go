package synth

import (
	"math"
	"testing"
)

func TestEnvelopeReachesIdle(t *testing.T) {
	p := Params{SampleRate: 1000, BlockSize: 64}
	times := []float64{0, 1e-7, .001, .01, .1, .5}
	for _, a := range times {
		for _, d := range times {
			for _, r := range times {
				for _, hold := range []int{0, 1, 5, 50, 700} {
					var e Envelope
					Init(&e, p)
					e.Config = EnvelopeConfig{AttackTime: a, DecayTime: d, ReleaseTime: r, AttackLevel: 1, SustainLevel: .6}
					e.Press()
					for i := 0; i < hold; i++ {
						checkLevel(t, e.Next())
					}
					e.Release()
					limit := int((a+d+r)*p.SampleRate) + p.BlockSize
					n := 0
					for ; !e.Idle(); n++ {
						if n > limit {
							t.Fatalf("a=%v d=%v r=%v hold=%d: not idle after %d samples", a, d, r, hold, n)
						}
						checkLevel(t, e.Next())
					}
					if e.Level() != 0 {
						t.Fatalf("idle at level %v", e.Level())
					}
				}
			}
		}
	}
}

func checkLevel(t *testing.T, x float64) {
	t.Helper()
	if math.IsNaN(x) || x < 0 || x > 1 {
		t.Fatalf("level %v", x)
	}
}

func TestEnvelopeStages(t *testing.T) {
	var e Envelope
	Init(&e, Params{SampleRate: 1000})
	e.Config = EnvelopeConfig{AttackTime: .01, DecayTime: .01, ReleaseTime: .01, AttackLevel: 1, SustainLevel: .5}
	e.Press()
	for _, want := range []struct {
		samples int
		stage   Stage
		level   float64
	}{
		{10, Decay, 1},
		{10, Sustain, .5},
		{100, Sustain, .5},
	} {
		for i := 0; i < want.samples; i++ {
			e.Next()
		}
		if e.Stage() != want.stage || math.Abs(e.Level()-want.level) > 1e-9 {
			t.Errorf("got %s at %v, want %s at %v", e.Stage(), e.Level(), want.stage, want.level)
		}
	}
	e.Release()
	e.Release()
	for i := 0; i < 10; i++ {
		e.Next()
	}
	if !e.Idle() {
		t.Errorf("got %s at %v, want idle", e.Stage(), e.Level())
	}
}

func TestEnvelopeRetriggerIsContinuous(t *testing.T) {
	var e Envelope
	Init(&e, Params{SampleRate: 1000})
	e.Config = EnvelopeConfig{AttackTime: .01, DecayTime: .01, ReleaseTime: .1, AttackLevel: 1, SustainLevel: .5}
	maxSlope := e.Config.AttackLevel / (e.Config.AttackTime * 1000)

	e.Press()
	for i := 0; i < 50; i++ {
		e.Next()
	}
	e.Release()
	prev := 0.0
	for i := 0; i < 20; i++ {
		prev = e.Next()
	}
	e.Press()
	if e.Level() != prev {
		t.Fatalf("press moved the level from %v to %v", prev, e.Level())
	}
	for i := 0; i < 30; i++ {
		x := e.Next()
		if math.Abs(x-prev) > maxSlope+1e-12 {
			t.Fatalf("sample %d: jumped from %v to %v", i, prev, x)
		}
		prev = x
	}
}

func TestEnvelopeScaled(t *testing.T) {
	c := EnvelopeConfig{AttackTime: .1, AttackLevel: 1, SustainLevel: .8}
	if got := c.Scaled(.25, 0); got != c {
		t.Errorf("sense 0 changed the config: %+v", got)
	}
	got := c.Scaled(.5, 1)
	if got.AttackLevel != .5 || got.SustainLevel != .4 {
		t.Errorf("half velocity: %+v", got)
	}
	if got := c.Scaled(1, 1); got != c {
		t.Errorf("full velocity changed the config: %+v", got)
	}
}

func TestEnvelopeValidate(t *testing.T) {
	for name, c := range map[string]EnvelopeConfig{
		"negative attack":  {AttackTime: -1},
		"NaN decay":        {DecayTime: math.NaN()},
		"infinite release": {ReleaseTime: math.Inf(1)},
		"loud attack":      {AttackLevel: 1.5},
		"negative sustain": {SustainLevel: -.1},
	} {
		err := c.Validate()
		if _, ok := err.(*ConfigError); !ok {
			t.Errorf("%s: got %v, want a ConfigError", name, err)
		}
	}
	if err := DefaultEnvelope().Validate(); err != nil {
		t.Error(err)
	}
}

func BenchmarkEnvelope(b *testing.B) {
	var e Envelope
	Init(&e, Params{SampleRate: 96000})
	e.Config = EnvelopeConfig{AttackTime: .1, DecayTime: .1, ReleaseTime: 2, AttackLevel: 1, SustainLevel: .5}
	for i := 0; i < b.N; i++ {
		if e.Idle() {
			e.Press()
		}
		if e.Stage() == Sustain {
			e.Release()
		}
		e.Next()
	}
}
