package synth

import "math"

type Stage uint8

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

var stageNames = [...]string{"idle", "attack", "decay", "sustain", "release"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Stage times at or below this many seconds are instantaneous.
const minStageTime = 1e-6

type EnvelopeConfig struct {
	AttackTime   float64
	DecayTime    float64
	ReleaseTime  float64
	AttackLevel  float64
	SustainLevel float64
}

func DefaultEnvelope() EnvelopeConfig {
	return EnvelopeConfig{ReleaseTime: .5, AttackLevel: 1, SustainLevel: 1}
}

func (c EnvelopeConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"attack_time", c.AttackTime},
		{"decay_time", c.DecayTime},
		{"release_time", c.ReleaseTime},
	} {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return &ConfigError{Field: f.name, Value: f.v, Reason: "must be a finite time >= 0"}
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"attack_level", c.AttackLevel},
		{"sustain_level", c.SustainLevel},
	} {
		if !(f.v >= 0 && f.v <= 1) {
			return &ConfigError{Field: f.name, Value: f.v, Reason: "must be in [0, 1]"}
		}
	}
	return nil
}

// Scaled applies key velocity (0..1) to the levels and attack time.  With
// sense 0 the config is unchanged; with sense 1 a soft note is quieter and
// slower to speak.
func (c EnvelopeConfig) Scaled(velocity, sense float64) EnvelopeConfig {
	velocity = clamp01(velocity)
	sense = clamp01(sense)
	k := 1 - sense*(1-velocity)
	c.AttackLevel *= k
	c.SustainLevel *= k
	c.AttackTime *= 1 + sense*(1-velocity)
	return c
}

// An Envelope is a linear attack/decay/sustain/release shape.  Press and
// Release always ramp from the current level so retriggers do not click.
type Envelope struct {
	Config     EnvelopeConfig
	sampleRate float64
	stage      Stage
	level      float64
	target     float64
	step       float64
	left       int // samples left in the stage
}

func (e *Envelope) InitAudio(p Params) {
	e.sampleRate = p.SampleRate
}

func (e *Envelope) Stage() Stage   { return e.stage }
func (e *Envelope) Level() float64 { return e.level }
func (e *Envelope) Idle() bool     { return e.stage == Idle }

// Reset silences the envelope at once.
func (e *Envelope) Reset() {
	e.stage = Idle
	e.level = 0
}

func (e *Envelope) Press() {
	e.enter(Attack)
}

func (e *Envelope) Release() {
	if e.stage == Idle || e.stage == Release {
		return
	}
	e.enter(Release)
}

// enter starts a stage, falling through any stage of zero duration.
func (e *Envelope) enter(s Stage) {
	for {
		e.stage = s
		var t float64
		switch s {
		case Attack:
			e.target, t = e.Config.AttackLevel, e.Config.AttackTime
		case Decay:
			e.target, t = e.Config.SustainLevel, e.Config.DecayTime
		case Release:
			e.target, t = 0, e.Config.ReleaseTime
		case Sustain:
			e.level = e.Config.SustainLevel
			return
		case Idle:
			e.level = 0
			return
		}
		if t > minStageTime && e.level != e.target {
			e.left = max(1, int(math.Round(t*e.sampleRate)))
			e.step = (e.target - e.level) / float64(e.left)
			return
		}
		e.level = e.target
		s = e.next()
	}
}

func (e *Envelope) next() Stage {
	switch e.stage {
	case Attack:
		return Decay
	case Decay:
		return Sustain
	}
	return Idle
}

// Next returns the level for the next sample.
func (e *Envelope) Next() float64 {
	switch e.stage {
	case Attack, Decay, Release:
		e.level += e.step
		if e.left--; e.left <= 0 {
			e.level = e.target
			e.enter(e.next())
		}
	}
	return e.level
}

// Fill writes successive levels into a.
func (e *Envelope) Fill(a Audio) Audio {
	for i := range a {
		a[i] = e.Next()
	}
	return a
}
