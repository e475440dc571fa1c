package synth

import (
	"fmt"
	"math"
)

// controls are the shared blocks every voice reads.
type controls struct {
	bend     *Block // octaves
	modWheel *Block
	slots    [numSlots]*Block
	vibrato  *Block // octaves
	tremolo  *Block
	waveScan *Block
	wavePos  *Block

	echoDelay *Block // seconds
	echoDecay *Block
	busFreq   *Block // Hz
}

func newControls(g *Graph) *controls {
	c := &controls{
		bend:     g.Const(0),
		modWheel: g.Const(0),
	}
	for i := range c.slots {
		c.slots[i] = g.Const(0)
	}

	// the mod wheel adds up to half a semitone of vibrato
	depth := g.Math(ScaledSum, From(c.modWheel), Const(.5), From(c.slots[SlotVibrato]))
	c.vibrato = g.LFO(LFOConfig{
		Scale:       From(g.Math(MulDiv, From(depth), Const(1), Const(12))),
		Interpolate: true,
	})

	// tremolo swings the amplitude between 1-depth and 1
	half := g.Math(Product, From(c.slots[SlotTremolo]), Const(.5), Const(1))
	c.tremolo = g.LFO(LFOConfig{
		Scale:       From(half),
		Offset:      From(g.Math(AddSub, Const(1), Const(0), From(half))),
		Interpolate: true,
	})

	// the scan runs up the wavetable and back down once per cycle
	c.waveScan = g.LFO(LFOConfig{
		Waveform:    rampWave(),
		Interpolate: true,
	})
	c.wavePos = g.Math(Sum, From(c.waveScan), From(c.slots[SlotWave]), Const(0))

	// swept delays and filters on the bus
	c.echoDelay = g.LFO(LFOConfig{Interpolate: true})
	c.echoDecay = g.Const(0)
	c.busFreq = g.LFO(LFOConfig{Interpolate: true})
	return c
}

// load points the shared blocks at prog and resets its controls.
func (c *controls) load(prog *Program) {
	for i, v := range prog.defaults() {
		c.slots[i].SetValue(v)
	}
	c.vibrato.SetRate(Const(prog.VibratoRate))
	c.tremolo.SetRate(Const(prog.TremoloRate))
	c.waveScan.SetRate(Const(prog.WaveScanRate))
	c.waveScan.SetScale(Const(float64(len(prog.waves) - 1)))
	c.echoDelay.SetRate(Const(prog.EchoModRate))
	c.echoDelay.SetScale(Const(prog.EchoModDepth))
	c.echoDelay.SetOffset(Const(prog.EchoDelay))
	c.echoDecay.SetValue(prog.EchoDecay)
	c.busFreq.SetRate(Const(prog.BusFilterModRate))
	c.busFreq.SetScale(Const(prog.BusFilterModDepth))
	c.busFreq.SetOffset(Const(prog.BusFilterFreq))
}

// A Synth is a polyphonic engine: a fixed pool of voices, the modulation
// graph they share and a master bus.
//
// Render, and the direct methods Press, Release, ControlChange, PitchBend and
// ProgramChange, must be called from one goroutine.  Other goroutines
// deliver events with Handle.
type Synth struct {
	// Blocks are advanced every block whether or not a voice reads them, so
	// free-running modulators keep their phase.
	Blocks []*Block

	params   Params
	graph    *Graph
	ctl      *controls
	programs []*Program
	prog     int
	voices   []*Voice
	seq      uint64
	sustain  bool
	last     float64 // pitch of the last note, for glide
	played   bool

	queue *eventQueue
	apply func(Event)

	mix       [2]Audio
	busFilter [2]Biquad
	echo      []*Echo
	limiters  []*Limiter
	dc        [2]DCFilter
}

func NewSynth(p Params, programs ...*Program) (*Synth, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(programs) == 0 {
		return nil, fmt.Errorf("%w: no programs", ErrInvalidParameter)
	}
	morphLen := 0
	maxEcho := 0.0
	for i, prog := range programs {
		if prog == nil || len(prog.waves) == 0 {
			return nil, fmt.Errorf("%w: program %d is not compiled", ErrInvalidParameter, i)
		}
		maxEcho = math.Max(maxEcho, prog.EchoDelay+prog.EchoModDepth)
		if len(prog.waves) > 1 && prog.waves[0].Len() > morphLen {
			morphLen = prog.waves[0].Len()
		}
	}

	s := &Synth{
		params:   p,
		graph:    NewGraph(p),
		programs: programs,
		queue:    newEventQueue(p.QueueSize),
	}
	s.apply = s.handle
	s.ctl = newControls(s.graph)
	s.Blocks = []*Block{s.ctl.vibrato, s.ctl.tremolo, s.ctl.waveScan, s.ctl.echoDelay, s.ctl.busFreq}
	s.ctl.load(programs[0])

	s.voices = make([]*Voice, p.Voices)
	for i := range s.voices {
		v := newVoice(s.graph, s.ctl, morphLen)
		Init(v, p)
		s.voices[i] = v
	}
	for i := 0; i < p.Channels; i++ {
		s.mix[i].InitAudio(p)
		s.dc[i].InitAudio(p)
		s.busFilter[i].InitAudio(p)
		if maxEcho > 0 {
			e := NewEcho(maxEcho)
			e.InitAudio(p)
			s.echo = append(s.echo, e)
		}
	}
	if p.Limit > 0 {
		for i := 0; i < p.Channels; i++ {
			l := NewLimiter(p.Limit, .01, .5)
			l.InitAudio(p)
			s.limiters = append(s.limiters, l)
		}
	}
	return s, nil
}

func (s *Synth) Params() Params { return s.params }

func (s *Synth) Graph() *Graph { return s.graph }

// Program is the program new notes are played with.
func (s *Synth) Program() *Program { return s.programs[s.prog] }

func (s *Synth) Voices() []*Voice { return s.voices }

// Sounding is the number of voices that are not free.
func (s *Synth) Sounding() int {
	n := 0
	for _, v := range s.voices {
		if !v.Free() {
			n++
		}
	}
	return n
}

// Active returns the voice bound to key, or nil.
func (s *Synth) Active(key Key) *Voice {
	for _, v := range s.voices {
		if v.bound && v.note.Key == key {
			return v
		}
	}
	return nil
}

// Handle queues ev for the next call to Render.  It is safe to call from any
// goroutine.
func (s *Synth) Handle(ev Event) error {
	return s.queue.push(ev)
}

// Pending is the number of queued events.
func (s *Synth) Pending() int { return s.queue.len() }

func (s *Synth) handle(ev Event) {
	switch ev := ev.(type) {
	case NoteOn:
		s.Press(ev.Key, ev.Velocity)
	case NoteOff:
		s.Release(ev.Key)
	case ControlChange:
		s.ControlChange(ev.ID, ev.Value)
	case PitchBend:
		s.PitchBend(ev.Amount)
	case ProgramChange:
		s.ProgramChange(ev.Program)
	}
}

// Press plays key at its MIDI pitch.  A velocity of 0 releases it.
func (s *Synth) Press(key Key, velocity uint8) *Voice {
	return s.PressFreq(key, MIDIToHz(float64(key)), velocity)
}

// PressFreq plays key at an arbitrary frequency.  If key is already bound its
// voice is released first and left to finish its tail unbound.  A frequency
// that is not finite and positive plays nothing.
func (s *Synth) PressFreq(key Key, hz float64, velocity uint8) *Voice {
	if velocity == 0 {
		s.Release(key)
		return nil
	}
	if !(hz > 0) || math.IsInf(hz, 1) {
		return nil
	}
	if old := s.Active(key); old != nil {
		if !old.Releasing() {
			s.release(old)
		}
		old.bound = false
	}

	v := s.allocate()
	n := Note{Key: key, Freq: hz, Velocity: velocity}
	pitch := n.Pitch()
	if s.played {
		n.Glide = s.last - pitch
	}
	s.last, s.played = pitch, true

	s.seq++
	v.onSeq = s.seq
	v.bound = true
	v.Trigger(n, s.Program())
	return v
}

// allocate picks a voice for a new note: the first free voice, else the
// releasing voice nearest silence (earliest released on a tie), else the
// voice triggered longest ago.
func (s *Synth) allocate() *Voice {
	var quiet, oldest *Voice
	for _, v := range s.voices {
		switch {
		case v.Free():
			v.bound = false
			return v
		case v.Releasing():
			if quiet == nil || v.Env.Level() < quiet.Env.Level() ||
				v.Env.Level() == quiet.Env.Level() && v.offSeq < quiet.offSeq {
				quiet = v
			}
		}
		if oldest == nil || v.onSeq < oldest.onSeq {
			oldest = v
		}
	}
	v := quiet
	if v == nil {
		v = oldest
	}
	v.bound = false
	return v
}

// Release releases the voice bound to key.  The key stays bound until the
// voice falls silent.
func (s *Synth) Release(key Key) {
	v := s.Active(key)
	if v == nil || v.Releasing() {
		return
	}
	if s.sustain {
		v.pedal = true
		return
	}
	s.release(v)
}

func (s *Synth) release(v *Voice) {
	s.seq++
	v.offSeq = s.seq
	v.Release()
}

func (s *Synth) ControlChange(cc, value uint8) {
	x := float64(value) / 127
	switch cc {
	case CCModWheel:
		s.ctl.modWheel.SetValue(x)
	case CCSustain:
		s.setSustain(value >= 64)
	case CCAllNotesOff:
		s.sustain = false
		for _, v := range s.voices {
			if v.bound && !v.Releasing() {
				s.release(v)
			}
		}
	case CCAllSoundOff:
		s.sustain = false
		for _, v := range s.voices {
			v.Env.Reset()
			v.bound = false
			v.pedal = false
		}
		for i := range s.echo {
			s.echo[i].Reset()
		}
		for i := range s.busFilter {
			s.busFilter[i].Reset()
		}
	default:
		for _, r := range s.Program().routes {
			if v := r.min + (r.max-r.min)*x; r.cc == cc && finite(v) {
				s.ctl.slots[r.slot].SetValue(v)
			}
		}
	}
}

func (s *Synth) setSustain(down bool) {
	s.sustain = down
	if down {
		return
	}
	for _, v := range s.voices {
		if v.pedal {
			s.release(v)
		}
	}
}

// Sustain reports whether the sustain pedal is down.
func (s *Synth) Sustain() bool { return s.sustain }

// PitchBend bends every voice by amount (in [-1, 1]) times the program's
// bend range.  NaN is no bend.
func (s *Synth) PitchBend(amount float64) {
	if math.IsNaN(amount) {
		amount = 0
	}
	amount = math.Max(-1, math.Min(1, amount))
	s.ctl.bend.SetValue(amount * s.Program().BendRange / 12)
}

// ProgramChange selects the program for subsequent notes.  Numbers with no
// program are ignored.
func (s *Synth) ProgramChange(n int) {
	if n < 0 || n >= len(s.programs) || n == s.prog {
		return
	}
	s.prog = n
	s.ctl.load(s.programs[n])
}

// SetControl sets a modulation slot directly.  Values that are not finite are
// ignored.
func (s *Synth) SetControl(slot Slot, v float64) {
	if slot < numSlots && finite(v) {
		s.ctl.slots[slot].SetValue(v)
	}
}

func (s *Synth) Control(slot Slot) float64 {
	if slot < numSlots {
		return s.ctl.slots[slot].Value()
	}
	return 0
}

// Render fills out with interleaved samples.  Trailing samples that do not
// make up a whole frame are zeroed.
func (s *Synth) Render(out []float32) {
	ch := s.params.Channels
	frames := len(out) / ch
	for i := frames * ch; i < len(out); i++ {
		out[i] = 0
	}
	for i := 0; i < frames; {
		n := min(frames-i, s.params.BlockSize)
		s.renderBlock(out[i*ch:(i+n)*ch], n)
		i += n
	}
}

func (s *Synth) renderBlock(out []float32, n int) {
	s.queue.drain(s.apply)
	s.graph.Advance(n)
	for _, b := range s.Blocks {
		s.graph.Value(b)
	}

	ch := s.params.Channels
	l := s.mix[0][:n].Zero()
	var r Audio
	if ch == 2 {
		r = s.mix[1][:n].Zero()
	}
	for _, v := range s.voices {
		if v.Free() {
			continue
		}
		a := v.Render(s.graph, n)
		if ch == 1 {
			l.Add(l, a)
			continue
		}
		l.AddMulX(l, a, v.gainL)
		r.AddMulX(r, a, v.gainR)
	}

	prog := s.Program()
	freq := s.ctl.busFreq.Value()
	delay := s.ctl.echoDelay.Value()
	for c := 0; c < ch; c++ {
		m := s.mix[c][:n]
		s.busFilter[c].Set(prog.busMode, freq, prog.BusFilterQ)
		s.busFilter[c].Process(m)
		if s.echo != nil {
			s.echo[c].Process(m, delay, s.ctl.echoDecay.Value(), s.ctl.slots[SlotEchoMix].Value())
		}
		for i, x := range m {
			x *= s.params.Gain
			if s.limiters != nil {
				x = s.limiters[c].Limit(x)
			}
			out[i*ch+c] = float32(s.dc[c].Filter(x))
		}
	}

	s.sweep()
}

// sweep unbinds voices that have fallen silent.
func (s *Synth) sweep() {
	for _, v := range s.voices {
		if v.bound && v.Free() {
			v.bound = false
			v.pedal = false
		}
	}
}
