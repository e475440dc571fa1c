package synth

import (
	"errors"
	"math"
	"testing"
)

// testPatch plays a plain sine with an organ envelope and a long release.
func testPatch() Patch {
	p := DefaultPatch()
	p.Name = "organ"
	p.Waveform = "sine"
	p.Detune = 1
	p.FilterType = "none"
	p.Envelope = EnvelopeConfig{ReleaseTime: .5, AttackLevel: 1, SustainLevel: 1}
	return p
}

func newTestSynth(t testing.TB, voices int, patches ...Patch) *Synth {
	t.Helper()
	if len(patches) == 0 {
		patches = []Patch{testPatch()}
	}
	var progs []*Program
	for _, p := range patches {
		prog, err := p.Compile(DefaultWaveBank())
		if err != nil {
			t.Fatal(err)
		}
		progs = append(progs, prog)
	}
	p := DefaultParams()
	p.SampleRate = 8000
	p.BlockSize = 64
	p.Voices = voices
	s, err := NewSynth(p, progs...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// render runs s for the given time and returns the output.
func render(s *Synth, seconds float64) []float32 {
	p := s.Params()
	out := make([]float32, int(seconds*p.SampleRate)*p.Channels)
	s.Render(out)
	return out
}

func TestNewSynthErrors(t *testing.T) {
	prog, _ := testPatch().Compile(DefaultWaveBank())
	if _, err := NewSynth(DefaultParams()); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("no programs: %v", err)
	}
	if _, err := NewSynth(DefaultParams(), prog, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil program: %v", err)
	}
	p := DefaultParams()
	p.SampleRate = -1
	if _, err := NewSynth(p, prog); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative sample rate: %v", err)
	}
}

func TestStealOldest(t *testing.T) {
	s := newTestSynth(t, 8)
	var first *Voice
	for k := Key(60); k < 68; k++ {
		v := s.Press(k, 100)
		if k == 60 {
			first = v
		}
	}
	if s.Sounding() != 8 {
		t.Fatalf("%d voices sounding", s.Sounding())
	}
	if v := s.Press(68, 100); v != first {
		t.Errorf("key 68 took the voice of key %d, want key 60", first.Key())
	}
	if s.Sounding() != 8 {
		t.Errorf("%d voices sounding after steal", s.Sounding())
	}
	if s.Active(60) != nil {
		t.Error("key 60 still bound")
	}
	for k := Key(61); k <= 68; k++ {
		if v := s.Active(k); v == nil || v.Key() != k {
			t.Errorf("key %d not bound", k)
		}
	}
}

func TestStealQuietestRelease(t *testing.T) {
	s := newTestSynth(t, 8)
	for k := Key(60); k < 68; k++ {
		s.Press(k, 100)
	}
	render(s, .05)
	s.Release(63)
	quiet := s.Active(63)
	render(s, .1)
	s.Release(65)
	render(s, .01)
	if !quiet.Releasing() || quiet.Env.Level() >= s.Active(65).Env.Level() {
		t.Fatalf("levels %v and %v", quiet.Env.Level(), s.Active(65).Env.Level())
	}
	if v := s.Press(70, 100); v != quiet {
		t.Errorf("stole the voice of key %d, want 63", v.Key())
	}
	if s.Active(63) != nil || s.Active(65) == nil {
		t.Error("wrong keys unbound")
	}
}

func TestStealTieGoesToEarliestRelease(t *testing.T) {
	s := newTestSynth(t, 4)
	for k := Key(60); k < 64; k++ {
		s.Press(k, 100)
	}
	render(s, .05)
	s.Release(62)
	s.Release(61)
	first := s.Active(62)
	render(s, .05)
	if v := s.Press(70, 100); v != first {
		t.Errorf("stole the voice of key %d, want 62", v.Key())
	}
}

func TestReleaseKeepsKeyUntilSilent(t *testing.T) {
	s := newTestSynth(t, 4)
	s.Press(60, 100)
	render(s, .1)
	s.Release(60)
	render(s, .1)
	v := s.Active(60)
	if v == nil || !v.Releasing() {
		t.Fatal("released key unbound before its tail ended")
	}
	render(s, .5)
	if s.Active(60) != nil || s.Sounding() != 0 {
		t.Errorf("key still bound after release: %d sounding", s.Sounding())
	}
}

func TestVelocityZeroReleases(t *testing.T) {
	s := newTestSynth(t, 4)
	s.Press(60, 100)
	if v := s.Press(60, 0); v != nil {
		t.Error("velocity 0 allocated a voice")
	}
	if v := s.Active(60); v == nil || !v.Releasing() {
		t.Error("velocity 0 did not release")
	}
}

func TestRepressReleasesPriorVoice(t *testing.T) {
	s := newTestSynth(t, 4)
	old := s.Press(60, 100)
	render(s, .1)
	level := old.Env.Level()
	v := s.Press(60, 100)
	if v == old {
		t.Fatal("re-press reused the sounding voice")
	}
	if !old.Releasing() || old.Env.Level() != level {
		t.Errorf("prior voice %s at %v, want release from %v", old.Env.Stage(), old.Env.Level(), level)
	}
	if s.Active(60) != v {
		t.Error("key not bound to the new voice")
	}
	if s.Sounding() != 2 {
		t.Errorf("%d sounding, want the new note and the old tail", s.Sounding())
	}
}

func TestSustainPedal(t *testing.T) {
	s := newTestSynth(t, 4)
	s.ControlChange(CCSustain, 127)
	v := s.Press(60, 100)
	s.Release(60)
	render(s, .1)
	if v.Releasing() {
		t.Fatal("released while the pedal is down")
	}
	s.ControlChange(CCSustain, 0)
	if !v.Releasing() {
		t.Error("pedal up did not release")
	}
}

func TestAllNotesAndSoundOff(t *testing.T) {
	s := newTestSynth(t, 4)
	s.Press(60, 100)
	s.Press(64, 100)
	s.ControlChange(CCAllNotesOff, 0)
	for _, v := range s.Voices()[:2] {
		if !v.Releasing() {
			t.Error("all notes off left a note held")
		}
	}
	s.ControlChange(CCAllSoundOff, 0)
	if s.Sounding() != 0 || s.Active(60) != nil {
		t.Error("all sound off left voices sounding")
	}
}

func TestControlRoutes(t *testing.T) {
	p := testPatch()
	p.Controls = []ControlMap{{CC: 74, Slot: "cutoff", Min: .5, Max: 2}, {CC: 10, Slot: "pan", Min: -1, Max: 1}}
	s := newTestSynth(t, 2, p)
	if s.Control(SlotCutoff) != 1 {
		t.Errorf("cutoff starts at %v", s.Control(SlotCutoff))
	}
	s.ControlChange(74, 127)
	if s.Control(SlotCutoff) != 2 {
		t.Errorf("cutoff %v", s.Control(SlotCutoff))
	}
	s.ControlChange(10, 0)
	v := s.Press(60, 100)
	render(s, .01)
	if v.gainL != 1 || v.gainR != 0 {
		t.Errorf("hard left pan gives gains %v, %v", v.gainL, v.gainR)
	}
}

func TestPitchBend(t *testing.T) {
	s := newTestSynth(t, 2)
	v := s.Press(69, 100)
	s.PitchBend(1)
	render(s, .01)
	if f, want := v.Osc.Frequency(), 440*math.Exp2(2./12); math.Abs(f/want-1) > 1e-9 {
		t.Errorf("bent frequency %v, want %v", f, want)
	}
	s.PitchBend(-5)
	render(s, .01)
	if f, want := v.Osc.Frequency(), 440*math.Exp2(-2./12); math.Abs(f/want-1) > 1e-9 {
		t.Errorf("bent frequency %v, want %v", f, want)
	}
}

func TestGlide(t *testing.T) {
	p := testPatch()
	p.GlideTime = .1
	s := newTestSynth(t, 2, p)
	s.Press(60, 100)
	s.Release(60)
	v := s.Press(72, 100)
	render(s, float64(s.Params().BlockSize)/s.Params().SampleRate)
	if f, want := v.Osc.Frequency(), MIDIToHz(60); math.Abs(f/want-1) > 1e-9 {
		t.Errorf("glide starts at %v, want %v", f, want)
	}
	render(s, .2)
	if f, want := v.Osc.Frequency(), MIDIToHz(72); math.Abs(f/want-1) > 1e-9 {
		t.Errorf("glide ends at %v, want %v", f, want)
	}
}

func TestProgramChange(t *testing.T) {
	a, b := testPatch(), testPatch()
	b.Name = "square"
	b.Waveform = "square"
	b.FilterQ = 3
	s := newTestSynth(t, 2, a, b)
	s.ProgramChange(1)
	if s.Program().Name != "square" || s.Control(SlotResonance) != 3 {
		t.Fatalf("program %s, resonance %v", s.Program().Name, s.Control(SlotResonance))
	}
	if v := s.Press(60, 100); v.Program() != s.Program() {
		t.Error("note did not use the new program")
	}
	s.ProgramChange(7)
	s.ProgramChange(-1)
	if s.Program().Name != "square" {
		t.Error("out of range program change was not ignored")
	}
}

func TestWavetableScan(t *testing.T) {
	p := testPatch()
	p.Wavetable = []string{"sine", "saw"}
	s := newTestSynth(t, 2, p)
	v := s.Press(60, 100)
	render(s, .01)
	if got, want := v.Osc.Waveform().Samples(), SineWave().Samples(); got[10] != want[10] {
		t.Errorf("position 0 plays %d, want sine %d", got[10], want[10])
	}
	s.SetControl(SlotWave, 1)
	render(s, .01)
	got, want := v.Osc.Waveform().Samples(), SawWave().Samples()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position 1 sample %d is %d, want saw %d", i, got[i], want[i])
		}
	}
}

func TestQueue(t *testing.T) {
	s := newTestSynth(t, 2)
	q := newEventQueue(2)
	s.queue = q
	if err := s.Handle(NoteOn{Key: 60, Velocity: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(NoteOff{Key: 60}); err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(NoteOn{Key: 62, Velocity: 100}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("full queue: %v", err)
	}
	if s.Active(60) != nil {
		t.Error("event applied before render")
	}
	render(s, .01)
	if s.Pending() != 0 {
		t.Errorf("%d events left", s.Pending())
	}
	if v := s.Active(60); v == nil || !v.Releasing() {
		t.Error("events not applied in order")
	}
	if err := s.Handle(ProgramChange{Program: 0}); err != nil {
		t.Errorf("queue not reusable: %v", err)
	}
}

func TestRenderOutput(t *testing.T) {
	s := newTestSynth(t, 4)
	out := make([]float32, 2*1000+1)
	out[len(out)-1] = 9
	s.Render(out)
	if out[len(out)-1] != 0 {
		t.Error("partial frame not zeroed")
	}
	for _, x := range out {
		if x != 0 {
			t.Fatal("silence expected with no notes")
		}
	}

	s.Press(60, 127)
	s.Press(64, 127)
	s.Press(67, 127)
	peak := 0.0
	for _, x := range render(s, .5) {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			t.Fatal("bad sample")
		}
		peak = math.Max(peak, math.Abs(float64(x)))
	}
	if peak == 0 || peak > 1 {
		t.Errorf("peak %v", peak)
	}
}

func TestRenderMono(t *testing.T) {
	prog, _ := testPatch().Compile(DefaultWaveBank())
	p := DefaultParams()
	p.Channels = 1
	p.Limit = .1
	s, err := NewSynth(p, prog)
	if err != nil {
		t.Fatal(err)
	}
	s.Press(60, 100)
	if peak := Audio(toFloat64(render(s, .2))).Peak(); peak == 0 {
		t.Error("mono synth is silent")
	}
}

func toFloat64(x []float32) []float64 {
	y := make([]float64, len(x))
	for i := range x {
		y[i] = float64(x[i])
	}
	return y
}

func TestRenderPitch(t *testing.T) {
	s := newTestSynth(t, 2)
	s.Press(69, 127)
	out := render(s, .5)
	const size = 2048
	x := make([]float64, size)
	for i := range x {
		x[i] = float64(out[2*(len(out)/2-size+i)])
	}
	a, err := NewAnalyzer(size, s.Params().SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if hz, _ := a.Peak(x); math.Abs(hz-440) > a.BinFreq(1) {
		t.Errorf("peak at %v Hz, want 440", hz)
	}
}

func BenchmarkSynth(b *testing.B) {
	s := newTestSynth(b, 8, DefaultPatch())
	for k := Key(60); k < 68; k++ {
		s.Press(k, 100)
	}
	out := make([]float32, 2*s.Params().BlockSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Render(out)
	}
}

func countNaN(out []float32) int {
	n := 0
	for _, x := range out {
		if x != x {
			n++
		}
	}
	return n
}

func peakOf(x []float64) float64 { return Audio(x).Peak() }

func TestPressFreqRejectsBadFrequency(t *testing.T) {
	p := testPatch()
	p.GlideTime = .1
	s := newTestSynth(t, 4, p)
	for _, hz := range []float64{-5, 0, math.NaN(), math.Inf(1)} {
		if v := s.PressFreq(1, hz, 100); v != nil {
			t.Errorf("%v Hz played", hz)
		}
	}
	if s.Sounding() != 0 || s.Active(1) != nil {
		t.Error("a bad frequency took a voice")
	}
	if v := s.Press(Key(-100000), 100); v != nil {
		t.Error("a key below hearing played")
	}

	v := s.Press(60, 100)
	if v == nil {
		t.Fatal("no voice")
	}
	if g := v.Note().Glide; g != 0 {
		t.Errorf("first valid note glides %v semitones", g)
	}
	out := render(s, .2)
	if n := countNaN(out); n > 0 {
		t.Fatalf("%d NaN samples of %d", n, len(out))
	}
	if peakOf(toFloat64(out)) == 0 {
		t.Error("silent")
	}
	if v := s.Press(64, 100); math.Abs(v.Note().Glide+4) > 1e-9 {
		t.Errorf("glide %v after a valid note", v.Note().Glide)
	}
}

func TestBadControlValuesAreIgnored(t *testing.T) {
	p := testPatch()
	p.Controls = []ControlMap{{CC: 7, Slot: "volume", Min: -math.MaxFloat64, Max: math.MaxFloat64}}
	s := newTestSynth(t, 4, p)
	s.Press(60, 100)

	s.PitchBend(math.NaN())
	if b := s.ctl.bend.Value(); b != 0 {
		t.Errorf("NaN bend set %v", b)
	}
	s.Handle(PitchBend{Amount: math.NaN()})
	s.SetControl(SlotPan, math.NaN())
	s.SetControl(SlotCutoff, math.Inf(1))
	s.ControlChange(7, 127)
	if s.Control(SlotPan) != 0 || s.Control(SlotCutoff) != 1 {
		t.Errorf("pan %v, cutoff %v", s.Control(SlotPan), s.Control(SlotCutoff))
	}
	if v := s.Control(SlotVolume); math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("volume %v", v)
	}

	out := render(s, .2)
	if n := countNaN(out); n > 0 {
		t.Fatalf("%d NaN samples of %d", n, len(out))
	}
	s.PitchBend(0)
	s.ControlChange(CCAllSoundOff, 0)
	if n := countNaN(render(s, .5)); n > 0 {
		t.Errorf("%d NaN samples after all sound off", n)
	}
}

func echoPatch() Patch {
	p := testPatch()
	p.Envelope.ReleaseTime = .01
	p.EchoDelay = .1
	p.EchoDecay = .5
	p.EchoMix = .5
	return p
}

// tail plays a short note and returns the output from .05s after it has
// fallen silent.
func tail(t *testing.T, s *Synth) []float64 {
	t.Helper()
	s.Press(69, 127)
	render(s, .05)
	s.Release(69)
	render(s, .05)
	if s.Sounding() != 0 {
		t.Fatal("note still sounding")
	}
	return toFloat64(render(s, .05))
}

func TestEchoTail(t *testing.T) {
	if p := peakOf(tail(t, newTestSynth(t, 2, echoPatch()))); p < .05 {
		t.Errorf("echo peak %v", p)
	}
	if p := peakOf(tail(t, newTestSynth(t, 2))); p > .01 {
		t.Errorf("peak %v without an echo", p)
	}

	s := newTestSynth(t, 2, echoPatch())
	s.Press(69, 127)
	render(s, .05)
	s.ControlChange(CCAllSoundOff, 0)
	render(s, .05)
	if p := peakOf(toFloat64(render(s, .1))); p > .01 {
		t.Errorf("echo not cleared by all sound off: peak %v", p)
	}
}

func TestEchoMixSlot(t *testing.T) {
	p := echoPatch()
	p.Controls = []ControlMap{{CC: 91, Slot: "echo_mix", Max: 1}}
	s := newTestSynth(t, 2, p)
	if s.Control(SlotEchoMix) != .5 {
		t.Errorf("echo mix %v", s.Control(SlotEchoMix))
	}
	s.ControlChange(91, 0)
	if p := peakOf(tail(t, s)); p > .01 {
		t.Errorf("peak %v with a dry echo", p)
	}
}

func TestEchoDelaySweeps(t *testing.T) {
	p := testPatch()
	p.EchoDelay = .02
	p.EchoModDepth = .01
	p.EchoModRate = 2
	p.EchoMix = .5
	s := newTestSynth(t, 2, p)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 40; i++ {
		render(s, .01)
		d := s.ctl.echoDelay.Value()
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	if lo < .01-1e-9 || hi > .03+1e-9 || hi-lo < .015 {
		t.Errorf("delay swept over [%v, %v]", lo, hi)
	}
}

func TestBusFilter(t *testing.T) {
	p := testPatch()
	p.BusFilterType = "lpf"
	p.BusFilterFreq = 200
	filtered := newTestSynth(t, 2, p)
	plain := newTestSynth(t, 2)
	var peaks [2]float64
	for i, s := range []*Synth{filtered, plain} {
		s.Press(69, 127)
		render(s, .2)
		peaks[i] = peakOf(toFloat64(render(s, .1)))
	}
	if peaks[0] > peaks[1]/2 {
		t.Errorf("filtered peak %v, unfiltered %v", peaks[0], peaks[1])
	}
	if f := filtered.busFilter[0]; f.Mode() != LowPass || math.Abs(f.Frequency()-200) > 1e-6 {
		t.Errorf("bus filter %v at %v Hz", f.Mode(), f.Frequency())
	}
}
