package synth

import "math"

// A Note is what a voice is asked to play.
type Note struct {
	Key      Key
	Freq     float64
	Velocity uint8
	Glide    float64 // starting pitch offset in semitones, gliding to 0
}

// Pitch is the note's pitch in MIDI keys, fractional for frequencies
// between keys.
func (n Note) Pitch() float64 {
	return 69 + 12*math.Log2(n.Freq/440)
}

// A Voice is one sounding note: one or two oscillators, an amplitude
// envelope and a filter, modulated by blocks from the synth's graph.
type Voice struct {
	Osc     Oscillator
	Detuned Oscillator
	Env     Envelope
	Filter  Biquad
	Out     Audio

	prog   *Program
	note   Note
	bound  bool
	pedal  bool   // release deferred by the sustain pedal
	onSeq  uint64 // order of the last trigger
	offSeq uint64 // order of the last release

	glide     *Ramp // pitch offset in octaves
	filterEnv *Ramp // filter frequency in Hz
	mod       modulation

	morph    Waveform
	morphBuf []int16
	wavePos  float64
	amp      float64
	gainL    float64
	gainR    float64
}

// modulation holds the slots a voice reads once per block.
type modulation struct {
	bend      Param // octaves
	amplitude Param
	cutoff    Param // Hz
	resonance Param
	volume    Param
	pan       Param
	wave      Param // wavetable position
}

func newVoice(g *Graph, c *controls, morphLen int) *Voice {
	v := &Voice{
		glide:     NewRamp(g, 0, Linear),
		filterEnv: NewRamp(g, 0, Linear),
		morphBuf:  make([]int16, morphLen),
	}
	bend := g.Math(Sum, From(c.bend), From(c.vibrato), From(v.glide.Output()))
	cutoff := g.Math(Product, From(v.filterEnv.Output()), From(c.slots[SlotCutoff]), Const(1))
	v.mod = modulation{
		bend:      From(bend),
		amplitude: From(c.tremolo),
		cutoff:    From(cutoff),
		resonance: From(c.slots[SlotResonance]),
		volume:    From(c.slots[SlotVolume]),
		pan:       From(c.slots[SlotPan]),
		wave:      From(c.wavePos),
	}
	return v
}

// Free reports whether the voice is silent and may be reused.
func (v *Voice) Free() bool { return v.Env.Idle() }

// Releasing reports whether the voice is in its release tail.
func (v *Voice) Releasing() bool { return v.Env.Stage() == Release }

func (v *Voice) Key() Key { return v.note.Key }

func (v *Voice) Note() Note { return v.note }

func (v *Voice) Program() *Program { return v.prog }

// Trigger starts n on the voice.  The envelope and filter sweep restart from
// wherever they are, so a stolen or retriggered voice does not click.
func (v *Voice) Trigger(n Note, prog *Program) {
	fresh := v.Free()
	v.prog = prog
	v.note = n
	v.pedal = false

	w := prog.waves[0]
	if len(prog.waves) > 1 {
		v.morph.s = v.morphBuf[:w.Len()]
		copy(v.morph.s, w.s)
		v.wavePos = 0
		w = &v.morph
	}
	for _, o := range []*Oscillator{&v.Osc, &v.Detuned} {
		o.Interpolate = prog.Interpolate
		o.SetWaveform(w)
		if prog.ResetPhase {
			o.Reset()
		}
	}
	v.Osc.SetFrequency(n.Freq)
	if prog.detuned {
		v.Detuned.SetFrequency(n.Freq * prog.Detune)
	}
	v.Filter.Reset()

	vel := float64(n.Velocity) / 127
	v.Env.Config = prog.Envelope.Scaled(vel, prog.VelocitySense)
	v.Env.Press()

	v.filterEnv.SetCurve(prog.curve)
	peak := keytrack(prog.FilterFreq, n.Pitch(), prog.FilterKeytrack)
	if fresh {
		v.filterEnv.Set(prog.FilterFreqMin, peak, prog.FilterAttackTime)
	} else {
		v.filterEnv.To(peak, prog.FilterAttackTime)
	}

	if n.Glide != 0 && prog.GlideTime > 0 {
		v.glide.Set(n.Glide/12, 0, prog.GlideTime)
	} else {
		v.glide.Jump(0)
	}

	if fresh {
		v.amp = v.amplitude()
		v.setPan()
	}
}

// Release starts the release tail.  Releasing twice is harmless.
func (v *Voice) Release() {
	if v.Free() || v.Releasing() {
		return
	}
	v.pedal = false
	v.Env.Release()
	v.filterEnv.To(v.prog.FilterFreqMin, v.prog.FilterReleaseTime)
}

func (v *Voice) amplitude() float64 {
	return v.mod.amplitude.Current() * v.mod.volume.Current()
}

func (v *Voice) setPan() {
	p := v.mod.pan.Current()
	v.gainL = clamp01(1 - p)
	v.gainR = clamp01(1 + p)
}

// Render computes the next n samples into Out and returns them.
func (v *Voice) Render(g *Graph, n int) Audio {
	out := v.Out[:n]
	prog := v.prog

	bend := v.mod.bend.At(g)
	v.Osc.SetBend(bend, Octaves)
	if prog.detuned {
		v.Detuned.SetBend(bend, Octaves)
	}
	v.Filter.Set(prog.mode, v.mod.cutoff.At(g), v.mod.resonance.At(g))
	if len(prog.waves) > 1 {
		v.scan(v.mod.wave.At(g))
	}
	v.mod.amplitude.At(g)
	v.mod.volume.At(g)
	v.mod.pan.At(g)
	amp := v.amplitude()
	v.setPan()

	// amplitude is interpolated across the block
	step := (amp - v.amp) / float64(n)
	for i := range out {
		x := v.Osc.Next()
		if prog.detuned {
			x = (x + v.Detuned.Next()) / 2
		}
		x = v.Filter.Filter(x * v.Env.Next())
		out[i] = x * (v.amp + step*float64(i+1))
	}
	v.amp = amp
	return out
}

// scan morphs the voice's table to position pos in the program's wavetable.
func (v *Voice) scan(pos float64) {
	last := float64(len(v.prog.waves) - 1)
	pos = math.Max(0, math.Min(last, pos))
	if pos == v.wavePos && v.Osc.Waveform() == &v.morph {
		return
	}
	v.wavePos = pos
	i := int(pos)
	if i == int(last) {
		i--
	}
	Morph(&v.morph, v.prog.waves[i], v.prog.waves[i+1], pos-float64(i))
}
