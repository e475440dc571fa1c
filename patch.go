package synth

import (
	"fmt"
	"math"
	"strings"
)

// A Patch describes one class of voice.  Patches are plain data; Compile
// checks them and resolves names into a Program the engine can play.
type Patch struct {
	Name string

	Waveform     string
	Wavetable    []string // scanned in order when it has two or more entries
	WaveScanRate float64  // wavetable scan, cycles per second
	Interpolate  bool
	Detune       float64 // frequency ratio of a second oscillator; 0 or 1 disables it
	ResetPhase   bool

	Envelope      EnvelopeConfig
	VelocitySense float64

	FilterType        string
	FilterFreq        float64
	FilterQ           float64
	FilterKeytrack    float64
	FilterFreqMin     float64
	FilterAttackTime  float64
	FilterReleaseTime float64
	FilterCurve       string

	VibratoRate  float64
	VibratoDepth float64 // semitones
	TremoloRate  float64
	TremoloDepth float64 // 0..1
	GlideTime    float64
	BendRange    float64 // semitones at full pitch bend
	Pan          float64
	Volume       float64

	// The echo and bus filter act on the mixed output of every voice.
	EchoDelay         float64 // seconds; 0 disables the echo
	EchoDecay         float64 // feedback gain
	EchoMix           float64 // 0 dry, 1 wet
	EchoModRate       float64 // LFO sweeping the delay, cycles per second
	EchoModDepth      float64 // seconds either side of EchoDelay
	BusFilterType     string
	BusFilterFreq     float64
	BusFilterQ        float64
	BusFilterModRate  float64
	BusFilterModDepth float64 // Hz either side of BusFilterFreq

	Controls []ControlMap
}

// A ControlMap routes a MIDI control change onto a modulation slot.
type ControlMap struct {
	CC       uint8
	Slot     string
	Min, Max float64
}

func DefaultPatch() Patch {
	return Patch{
		Name:        "default",
		Waveform:    "saw",
		Interpolate: true,
		Detune:      1.001,
		Envelope: EnvelopeConfig{
			DecayTime:    .05,
			ReleaseTime:  .5,
			AttackLevel:  1,
			SustainLevel: .8,
		},
		FilterType:        "lpf",
		FilterFreq:        4000,
		FilterQ:           1.2,
		FilterFreqMin:     500,
		FilterAttackTime:  .1,
		FilterReleaseTime: .3,
		FilterCurve:       "linear",
		VibratoRate:       5,
		TremoloRate:       5,
		BendRange:         2,
		Volume:            1,
		BusFilterType:     "none",
		BusFilterFreq:     2000,
		BusFilterQ:        .707,
	}
}

func (p *Patch) String() string {
	return fmt.Sprintf("Patch(%s: %s %s %.0fHz q=%.2f)", p.Name, p.Waveform, p.FilterType, p.FilterFreq, p.FilterQ)
}

// Slot names a modulation destination that control changes can drive.
type Slot uint8

const (
	SlotCutoff    Slot = iota // multiplier on the filter frequency
	SlotResonance             // filter Q
	SlotVibrato               // vibrato depth, semitones
	SlotTremolo               // tremolo depth, 0..1
	SlotWave                  // wavetable position offset
	SlotVolume
	SlotPan
	SlotEchoMix
	numSlots
)

var slotNames = [numSlots]string{"cutoff", "resonance", "vibrato", "tremolo", "wave", "volume", "pan", "echo_mix"}

func (s Slot) String() string {
	if s < numSlots {
		return slotNames[s]
	}
	return "unknown"
}

func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if strings.EqualFold(name, n) {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown slot %q", name)
}

// Control changes with a fixed meaning.
const (
	CCModWheel    = 1
	CCSustain     = 64
	CCAllSoundOff = 120
	CCAllNotesOff = 123
)

// A Program is a compiled Patch.
type Program struct {
	Patch
	waves   []*Waveform
	mode    FilterMode
	busMode FilterMode
	curve   Curve
	detuned bool
	routes  []route
}

type route struct {
	cc       uint8
	slot     Slot
	min, max float64
}

func (p *Program) FilterMode() FilterMode { return p.mode }

// WaveCount is the number of waveforms the program scans through.
func (p *Program) WaveCount() int { return len(p.waves) }

// defaults is the value of each slot before any control change.
func (p *Program) defaults() [numSlots]float64 {
	var d [numSlots]float64
	d[SlotCutoff] = 1
	d[SlotResonance] = p.FilterQ
	d[SlotVibrato] = p.VibratoDepth
	d[SlotTremolo] = p.TremoloDepth
	d[SlotVolume] = p.Volume
	d[SlotPan] = p.Pan
	d[SlotEchoMix] = p.EchoMix
	return d
}

// Compile validates p against the waveforms in bank.
func (p Patch) Compile(bank WaveBank) (*Program, error) {
	fail := func(field string, value interface{}, reason string) error {
		return &ConfigError{Patch: p.Name, Field: field, Value: value, Reason: reason}
	}
	prog := &Program{Patch: p}
	prog.Controls = append([]ControlMap(nil), p.Controls...)
	prog.Wavetable = append([]string(nil), p.Wavetable...)

	names := p.Wavetable
	if len(names) < 2 {
		names = []string{p.Waveform}
	}
	for _, name := range names {
		w, ok := bank[name]
		if !ok || w == nil {
			return nil, fail("waveform", name, fmt.Sprintf("want one of %s", strings.Join(bank.Names(), ", ")))
		}
		if len(prog.waves) > 0 && w.Len() != prog.waves[0].Len() {
			return nil, fail("wavetable", name, "waveform lengths differ")
		}
		prog.waves = append(prog.waves, w)
	}

	var err error
	if prog.mode, err = ParseFilterMode(p.FilterType); err != nil {
		return nil, fail("filter_type", p.FilterType, err.Error())
	}
	if prog.busMode, err = ParseFilterMode(p.BusFilterType); err != nil {
		return nil, fail("bus_filter_type", p.BusFilterType, err.Error())
	}
	if prog.curve, err = ParseCurve(p.FilterCurve); err != nil {
		return nil, fail("filter_curve", p.FilterCurve, err.Error())
	}
	if err := p.Envelope.Validate(); err != nil {
		e := err.(*ConfigError)
		e.Patch = p.Name
		return nil, e
	}

	for _, f := range []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"detune", p.Detune, 0, math.MaxFloat64},
		{"wave_scan_rate", p.WaveScanRate, 0, math.MaxFloat64},
		{"velocity_sense", p.VelocitySense, 0, 1},
		{"filter_freq", p.FilterFreq, math.SmallestNonzeroFloat64, math.MaxFloat64},
		{"filter_q", p.FilterQ, math.SmallestNonzeroFloat64, math.MaxFloat64},
		{"filter_keytrack", p.FilterKeytrack, 0, math.MaxFloat64},
		{"filter_freq_min", p.FilterFreqMin, 0, math.MaxFloat64},
		{"filter_attack_time", p.FilterAttackTime, 0, math.MaxFloat64},
		{"filter_release_time", p.FilterReleaseTime, 0, math.MaxFloat64},
		{"vibrato_rate", p.VibratoRate, 0, math.MaxFloat64},
		{"vibrato_depth", p.VibratoDepth, 0, 48},
		{"tremolo_rate", p.TremoloRate, 0, math.MaxFloat64},
		{"tremolo_depth", p.TremoloDepth, 0, 1},
		{"glide_time", p.GlideTime, 0, math.MaxFloat64},
		{"bend_range", p.BendRange, 0, 48},
		{"pan", p.Pan, -1, 1},
		{"volume", p.Volume, 0, math.MaxFloat64},
		{"echo_delay", p.EchoDelay, 0, maxEchoDelay},
		{"echo_decay", p.EchoDecay, 0, maxEchoDecay},
		{"echo_mix", p.EchoMix, 0, 1},
		{"echo_mod_rate", p.EchoModRate, 0, math.MaxFloat64},
		{"echo_mod_depth", p.EchoModDepth, 0, p.EchoDelay},
		{"bus_filter_freq", p.BusFilterFreq, math.SmallestNonzeroFloat64, math.MaxFloat64},
		{"bus_filter_q", p.BusFilterQ, math.SmallestNonzeroFloat64, math.MaxFloat64},
		{"bus_filter_mod_rate", p.BusFilterModRate, 0, math.MaxFloat64},
		{"bus_filter_mod_depth", p.BusFilterModDepth, 0, math.MaxFloat64},
	} {
		if !(f.v >= f.min && f.v <= f.max) {
			return nil, fail(f.name, f.v, "out of range")
		}
	}
	prog.detuned = p.Detune != 0 && p.Detune != 1

	for _, c := range p.Controls {
		if c.CC > 127 {
			return nil, fail("control", c.CC, "not a MIDI controller number")
		}
		switch c.CC {
		case CCModWheel, CCSustain, CCAllSoundOff, CCAllNotesOff:
			return nil, fail("control", c.CC, "reserved controller")
		}
		s, err := ParseSlot(c.Slot)
		if err != nil {
			return nil, fail("control", c.Slot, err.Error())
		}
		if !finite(c.Min) || !finite(c.Max) {
			return nil, fail("control", c.Slot, "range is not finite")
		}
		prog.routes = append(prog.routes, route{c.CC, s, c.Min, c.Max})
	}
	return prog, nil
}

// maxEchoDelay is the longest echo a patch may ask for, in seconds.
const maxEchoDelay = 10

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// keytrack raises the filter frequency by amount for every octave above
// key 32.
func keytrack(freq, pitch, amount float64) float64 {
	const baseKey = 32
	octaves := math.Max(pitch-baseKey, 0) / 12
	return freq * (1 + octaves*amount)
}
