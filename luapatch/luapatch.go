// Package luapatch loads synth patches written as Lua tables.
//
// A patch script returns either one patch table or a list of them:
//
//	return {
//		{name = "lead", waveform = "saw", filter_type = "lpf", filter_freq = 3000},
//		{name = "pad", wavetable = {"sine", "triangle", "saw"}, wave_scan_rate = .2},
//		{name = "chorus", echo_delay = .015, echo_mix = .5, echo_mod_rate = .5, echo_mod_depth = .005},
//	}
//
// Options not set in a table keep the values of synth.DefaultPatch.
package luapatch

import (
	"fmt"
	"os"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/gordonklaus/synth"
)

// Load runs src and returns the patches it describes.
func Load(src string) ([]*synth.Patch, error) {
	return load(func(L *lua.LState) error { return L.DoString(src) })
}

func LoadFile(path string) ([]*synth.Patch, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return load(func(L *lua.LState) error { return L.DoFile(path) })
}

// Compile compiles every patch against bank.
func Compile(patches []*synth.Patch, bank synth.WaveBank) ([]*synth.Program, error) {
	progs := make([]*synth.Program, len(patches))
	for i, p := range patches {
		prog, err := p.Compile(bank)
		if err != nil {
			return nil, err
		}
		progs[i] = prog
	}
	return progs, nil
}

func load(run func(*lua.LState) error) ([]*synth.Patch, error) {
	L := lua.NewState()
	defer L.Close()
	if err := run(L); err != nil {
		return nil, err
	}
	if L.GetTop() == 0 {
		return nil, fmt.Errorf("luapatch: script returned nothing")
	}
	tb, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("luapatch: script returned %s, want a table", L.Get(-1).Type())
	}

	if tb.Len() == 0 {
		p, err := patch(tb, 0)
		if err != nil {
			return nil, err
		}
		return []*synth.Patch{p}, nil
	}
	var patches []*synth.Patch
	for i := 1; i <= tb.Len(); i++ {
		t, ok := tb.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("luapatch: patch %d is a %s, want a table", i, tb.RawGetInt(i).Type())
		}
		p, err := patch(t, i)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func patch(tb *lua.LTable, n int) (*synth.Patch, error) {
	p := synth.DefaultPatch()
	p.Name = fmt.Sprintf("patch%d", n)
	if name, ok := tb.RawGetString("name").(lua.LString); ok {
		p.Name = string(name)
	}

	// sorted so that the first bad option reported is deterministic
	var keys []string
	values := map[string]lua.LValue{}
	var err error
	tb.ForEach(func(k, v lua.LValue) {
		s, ok := k.(lua.LString)
		if !ok {
			if err == nil {
				err = &synth.ConfigError{Patch: p.Name, Field: k.String(), Reason: "option names must be strings"}
			}
			return
		}
		keys = append(keys, string(s))
		values[string(s)] = v
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "name" {
			continue
		}
		set, ok := options[k]
		if !ok {
			return nil, &synth.ConfigError{Patch: p.Name, Field: k, Reason: "unknown option"}
		}
		if err := set(&p, values[k]); err != nil {
			return nil, &synth.ConfigError{Patch: p.Name, Field: k, Value: values[k], Reason: err.Error()}
		}
	}
	return &p, nil
}

var options = map[string]func(*synth.Patch, lua.LValue) error{
	"waveform":       str(func(p *synth.Patch) *string { return &p.Waveform }),
	"wavetable":      strs(func(p *synth.Patch) *[]string { return &p.Wavetable }),
	"wave_scan_rate": num(func(p *synth.Patch) *float64 { return &p.WaveScanRate }),
	"interpolate":    boolean(func(p *synth.Patch) *bool { return &p.Interpolate }),
	"detune":         num(func(p *synth.Patch) *float64 { return &p.Detune }),
	"reset_phase":    boolean(func(p *synth.Patch) *bool { return &p.ResetPhase }),

	"attack_time":    num(func(p *synth.Patch) *float64 { return &p.Envelope.AttackTime }),
	"decay_time":     num(func(p *synth.Patch) *float64 { return &p.Envelope.DecayTime }),
	"release_time":   num(func(p *synth.Patch) *float64 { return &p.Envelope.ReleaseTime }),
	"attack_level":   num(func(p *synth.Patch) *float64 { return &p.Envelope.AttackLevel }),
	"sustain_level":  num(func(p *synth.Patch) *float64 { return &p.Envelope.SustainLevel }),
	"velocity_sense": num(func(p *synth.Patch) *float64 { return &p.VelocitySense }),

	"filter_type":         str(func(p *synth.Patch) *string { return &p.FilterType }),
	"filter_freq":         num(func(p *synth.Patch) *float64 { return &p.FilterFreq }),
	"filter_q":            num(func(p *synth.Patch) *float64 { return &p.FilterQ }),
	"filter_keytrack":     num(func(p *synth.Patch) *float64 { return &p.FilterKeytrack }),
	"filter_freq_min":     num(func(p *synth.Patch) *float64 { return &p.FilterFreqMin }),
	"filter_attack_time":  num(func(p *synth.Patch) *float64 { return &p.FilterAttackTime }),
	"filter_release_time": num(func(p *synth.Patch) *float64 { return &p.FilterReleaseTime }),
	"filter_curve":        str(func(p *synth.Patch) *string { return &p.FilterCurve }),

	"vibrato_rate":  num(func(p *synth.Patch) *float64 { return &p.VibratoRate }),
	"vibrato_depth": num(func(p *synth.Patch) *float64 { return &p.VibratoDepth }),
	"tremolo_rate":  num(func(p *synth.Patch) *float64 { return &p.TremoloRate }),
	"tremolo_depth": num(func(p *synth.Patch) *float64 { return &p.TremoloDepth }),
	"glide_time":    num(func(p *synth.Patch) *float64 { return &p.GlideTime }),
	"bend_range":    num(func(p *synth.Patch) *float64 { return &p.BendRange }),
	"pan":           num(func(p *synth.Patch) *float64 { return &p.Pan }),
	"volume":        num(func(p *synth.Patch) *float64 { return &p.Volume }),

	"echo_delay":           num(func(p *synth.Patch) *float64 { return &p.EchoDelay }),
	"echo_decay":           num(func(p *synth.Patch) *float64 { return &p.EchoDecay }),
	"echo_mix":             num(func(p *synth.Patch) *float64 { return &p.EchoMix }),
	"echo_mod_rate":        num(func(p *synth.Patch) *float64 { return &p.EchoModRate }),
	"echo_mod_depth":       num(func(p *synth.Patch) *float64 { return &p.EchoModDepth }),
	"bus_filter_type":      str(func(p *synth.Patch) *string { return &p.BusFilterType }),
	"bus_filter_freq":      num(func(p *synth.Patch) *float64 { return &p.BusFilterFreq }),
	"bus_filter_q":         num(func(p *synth.Patch) *float64 { return &p.BusFilterQ }),
	"bus_filter_mod_rate":  num(func(p *synth.Patch) *float64 { return &p.BusFilterModRate }),
	"bus_filter_mod_depth": num(func(p *synth.Patch) *float64 { return &p.BusFilterModDepth }),

	"controls": controls,
}

func num(field func(*synth.Patch) *float64) func(*synth.Patch, lua.LValue) error {
	return func(p *synth.Patch, v lua.LValue) error {
		n, ok := v.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want a number, got %s", v.Type())
		}
		*field(p) = float64(n)
		return nil
	}
}

func str(field func(*synth.Patch) *string) func(*synth.Patch, lua.LValue) error {
	return func(p *synth.Patch, v lua.LValue) error {
		s, ok := v.(lua.LString)
		if !ok {
			return fmt.Errorf("want a string, got %s", v.Type())
		}
		*field(p) = string(s)
		return nil
	}
}

func boolean(field func(*synth.Patch) *bool) func(*synth.Patch, lua.LValue) error {
	return func(p *synth.Patch, v lua.LValue) error {
		b, ok := v.(lua.LBool)
		if !ok {
			return fmt.Errorf("want a boolean, got %s", v.Type())
		}
		*field(p) = bool(b)
		return nil
	}
}

func strs(field func(*synth.Patch) *[]string) func(*synth.Patch, lua.LValue) error {
	return func(p *synth.Patch, v lua.LValue) error {
		tb, ok := v.(*lua.LTable)
		if !ok {
			return fmt.Errorf("want a list of strings, got %s", v.Type())
		}
		var out []string
		for i := 1; i <= tb.Len(); i++ {
			s, ok := tb.RawGetInt(i).(lua.LString)
			if !ok {
				return fmt.Errorf("entry %d is a %s, want a string", i, tb.RawGetInt(i).Type())
			}
			out = append(out, string(s))
		}
		*field(p) = out
		return nil
	}
}

func controls(p *synth.Patch, v lua.LValue) error {
	tb, ok := v.(*lua.LTable)
	if !ok {
		return fmt.Errorf("want a list of controls, got %s", v.Type())
	}
	p.Controls = nil
	for i := 1; i <= tb.Len(); i++ {
		c, ok := tb.RawGetInt(i).(*lua.LTable)
		if !ok {
			return fmt.Errorf("control %d is a %s, want a table", i, tb.RawGetInt(i).Type())
		}
		cc, ok := c.RawGetString("cc").(lua.LNumber)
		if !ok || cc < 0 || cc > 127 {
			return fmt.Errorf("control %d: cc must be a number in [0, 127]", i)
		}
		slot, ok := c.RawGetString("slot").(lua.LString)
		if !ok {
			return fmt.Errorf("control %d: slot must be a string", i)
		}
		m := synth.ControlMap{CC: uint8(cc), Slot: string(slot), Max: 1}
		if x, ok := c.RawGetString("min").(lua.LNumber); ok {
			m.Min = float64(x)
		}
		if x, ok := c.RawGetString("max").(lua.LNumber); ok {
			m.Max = float64(x)
		}
		p.Controls = append(p.Controls, m)
	}
	return nil
}
