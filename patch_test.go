package synth

import (
	"errors"
	"math"
	"testing"
)

func TestCompileDefaultPatch(t *testing.T) {
	prog, err := DefaultPatch().Compile(DefaultWaveBank())
	if err != nil {
		t.Fatal(err)
	}
	if prog.FilterMode() != LowPass || prog.WaveCount() != 1 || !prog.detuned {
		t.Errorf("compiled %v: mode %s, %d waves", prog.Name, prog.FilterMode(), prog.WaveCount())
	}
}

func TestCompileErrors(t *testing.T) {
	short, _ := NewWaveform([]int16{0, 1, 2, 3})
	bank := DefaultWaveBank()
	bank["short"] = short

	for field, f := range map[string]func(*Patch){
		"waveform":        func(p *Patch) { p.Waveform = "kazoo" },
		"wavetable":       func(p *Patch) { p.Wavetable = []string{"sine", "short"} },
		"filter_type":     func(p *Patch) { p.FilterType = "comb" },
		"filter_curve":    func(p *Patch) { p.FilterCurve = "wiggly" },
		"sustain_level":   func(p *Patch) { p.Envelope.SustainLevel = 2 },
		"attack_time":     func(p *Patch) { p.Envelope.AttackTime = -1 },
		"filter_q":        func(p *Patch) { p.FilterQ = 0 },
		"pan":             func(p *Patch) { p.Pan = 1.5 },
		"velocity_sense":  func(p *Patch) { p.VelocitySense = 2 },
		"tremolo_depth":   func(p *Patch) { p.TremoloDepth = -1 },
		"control":         func(p *Patch) { p.Controls = []ControlMap{{CC: 74, Slot: "flavor"}} },
		"filter_keytrack": func(p *Patch) { p.FilterKeytrack = -1 },
		"echo_delay":      func(p *Patch) { p.EchoDelay = math.NaN() },
		"echo_decay":      func(p *Patch) { p.EchoDelay, p.EchoDecay = .1, 1 },
		"echo_mod_depth":  func(p *Patch) { p.EchoDelay, p.EchoModDepth = .01, .02 },
		"bus_filter_type": func(p *Patch) { p.BusFilterType = "comb" },
	} {
		p := DefaultPatch()
		p.Name = "test"
		f(&p)
		_, err := p.Compile(bank)
		var cerr *ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: got %v, want a ConfigError", field, err)
			continue
		}
		if cerr.Field != field || cerr.Patch != "test" {
			t.Errorf("%s: error names field %q of patch %q", field, cerr.Field, cerr.Patch)
		}
	}
}

func TestCompileReservedControl(t *testing.T) {
	for _, cc := range []uint8{CCModWheel, CCSustain, CCAllSoundOff, CCAllNotesOff, 200} {
		p := DefaultPatch()
		p.Controls = []ControlMap{{CC: cc, Slot: "cutoff", Max: 1}}
		if _, err := p.Compile(DefaultWaveBank()); err == nil {
			t.Errorf("controller %d accepted", cc)
		}
	}
}

func TestCompileCopiesSlices(t *testing.T) {
	p := DefaultPatch()
	p.Wavetable = []string{"sine", "saw"}
	p.Controls = []ControlMap{{CC: 74, Slot: "Cutoff", Min: .5, Max: 2}}
	prog, err := p.Compile(DefaultWaveBank())
	if err != nil {
		t.Fatal(err)
	}
	p.Wavetable[0] = "noise"
	p.Controls[0].CC = 75
	if prog.Wavetable[0] != "sine" || prog.Controls[0].CC != 74 {
		t.Error("program shares slices with its patch")
	}
	if prog.WaveCount() != 2 || len(prog.routes) != 1 || prog.routes[0].slot != SlotCutoff {
		t.Errorf("waves %d, routes %+v", prog.WaveCount(), prog.routes)
	}
}

func TestKeytrack(t *testing.T) {
	for _, c := range []struct{ pitch, amount, want float64 }{
		{20, 1, 1000},
		{32, 1, 1000},
		{44, 1, 2000},
		{56, .5, 2000},
		{80, 0, 1000},
	} {
		if got := keytrack(1000, c.pitch, c.amount); got != c.want {
			t.Errorf("keytrack(1000, %v, %v) = %v, want %v", c.pitch, c.amount, got, c.want)
		}
	}
}

func TestCompileControlRangeMustBeFinite(t *testing.T) {
	for _, r := range [][2]float64{{math.Inf(-1), 1}, {0, math.Inf(1)}, {math.NaN(), 1}} {
		p := DefaultPatch()
		p.Controls = []ControlMap{{CC: 74, Slot: "volume", Min: r[0], Max: r[1]}}
		if _, err := p.Compile(DefaultWaveBank()); err == nil {
			t.Errorf("range %v accepted", r)
		}
	}
}
