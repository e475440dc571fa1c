package synth

import "math"

// Kind tags the variant held by a Block.
type Kind uint8

const (
	KindConst Kind = iota
	KindLFO
	KindMath
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindLFO:
		return "lfo"
	case KindMath:
		return "math"
	}
	return "unknown"
}

// Op is the operation of a math block.
type Op uint8

const (
	Sum             Op = iota // a + b + c
	AddSub                    // a + b - c
	Product                   // a * b * c
	MulDiv                    // a * b / c, 0 when c is 0
	ScaledSum                 // a * b + c
	ConstrainedLerp           // a + (b - a) * clamp(c, 0, 1)
	Max                       // max(a, b, c)
	Min                       // min(a, b, c)
	Abs                       // |a|
)

var opNames = [...]string{"sum", "add_sub", "product", "mul_div", "scaled_sum", "constrained_lerp", "max", "min", "abs"}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "unknown"
}

func (op Op) Apply(a, b, c float64) float64 {
	switch op {
	case Sum:
		return a + b + c
	case AddSub:
		return a + b - c
	case Product:
		return a * b * c
	case MulDiv:
		if c == 0 {
			return 0
		}
		return a * b / c
	case ScaledSum:
		return a*b + c
	case ConstrainedLerp:
		return Lerp(a, b, c)
	case Max:
		return math.Max(a, math.Max(b, c))
	case Min:
		return math.Min(a, math.Min(b, c))
	case Abs:
		return math.Abs(a)
	}
	return 0
}

// Lerp is a + (b-a)*t with t clamped to [0, 1].  It returns exactly a at
// t <= 0 and exactly b at t >= 1.
func Lerp(a, b, t float64) float64 {
	switch {
	case t <= 0 || math.IsNaN(t):
		return a
	case t >= 1:
		return b
	}
	return a + (b-a)*t
}

// A Param is a modulation slot value: a constant or the output of a Block.
type Param struct {
	c float64
	b *Block
}

func Const(v float64) Param { return Param{c: v} }

func From(b *Block) Param {
	if b == nil {
		return Param{}
	}
	return Param{b: b}
}

func (p Param) Block() *Block { return p.b }

// At evaluates p for the current block of g.
func (p Param) At(g *Graph) float64 {
	if p.b != nil {
		return g.Value(p.b)
	}
	return p.c
}

// Current returns the last computed value without advancing anything.
func (p Param) Current() float64 {
	if p.b != nil {
		return p.b.value
	}
	return p.c
}

// A Block is a scalar modulation source.  It may be read by any number of
// voices but is advanced only by its Graph, at most once per audio block.
type Block struct {
	kind  Kind
	value float64
	tick  uint64 // graph block the value belongs to
	busy  bool   // being evaluated; breaks cycles

	// LFO
	wave        *Waveform
	rate        Param
	scale       Param
	offset      Param
	phase       float64
	phaseOffset float64
	once        bool
	interpolate bool

	// math
	op      Op
	a, b, c Param
}

func (b *Block) Kind() Kind { return b.kind }

// Value is the output computed for the most recent block.
func (b *Block) Value() float64 { return b.value }

// SetValue sets the output of a constant block.
func (b *Block) SetValue(v float64) {
	if b.kind == KindConst {
		b.value = v
	}
}

type LFOConfig struct {
	Waveform    *Waveform // nil selects a triangle 0, 1, 0, -1
	Rate        Param     // cycles per second
	Scale       Param
	Offset      Param
	PhaseOffset float64
	Once        bool // run a single cycle and hold the last sample
	Interpolate bool // false holds each table sample
}

func (b *Block) SetRate(r Param)   { b.rate = r }
func (b *Block) SetScale(s Param)  { b.scale = s }
func (b *Block) SetOffset(o Param) { b.offset = o }
func (b *Block) Rate() Param       { return b.rate }

// SetWaveform swaps the LFO table without touching its phase.
func (b *Block) SetWaveform(w *Waveform) {
	if w != nil {
		b.wave = w
	}
}

func (b *Block) Phase() float64 { return b.phase }

// Retrigger restarts a one-shot LFO.  It is a no-op for any other block.
func (b *Block) Retrigger() {
	if b.kind == KindLFO && b.once {
		b.phase = clamp01(b.phaseOffset)
	}
}

// Done reports whether a one-shot LFO has reached the end of its cycle.
func (b *Block) Done() bool {
	return b.kind == KindLFO && b.once && b.phase >= 1
}

func (b *Block) SetA(p Param) { b.a = p }
func (b *Block) SetB(p Param) { b.b = p }
func (b *Block) SetC(p Param) { b.c = p }
func (b *Block) A() Param     { return b.a }
func (b *Block) B() Param     { return b.b }
func (b *Block) C() Param     { return b.c }

func (b *Block) lookup() float64 {
	n := b.wave.Len()
	if b.once {
		return b.wave.Lookup(clamp01(b.phase)*float64(n-1), b.interpolate)
	}
	p := b.phase + b.phaseOffset
	p -= math.Floor(p)
	return b.wave.Lookup(p*float64(n), b.interpolate)
}

func (b *Block) advance(dt float64, rate float64) {
	b.phase += rate * dt
	if b.once {
		b.phase = clamp01(b.phase)
		return
	}
	b.phase -= math.Floor(b.phase)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// A Graph owns a set of blocks and the block clock that advances them.
type Graph struct {
	sampleRate float64
	tick       uint64
	dt         float64
	blocks     []*Block
}

func NewGraph(p Params) *Graph {
	g := &Graph{}
	g.InitAudio(p)
	return g
}

func (g *Graph) InitAudio(p Params) {
	g.sampleRate = p.SampleRate
}

// Advance starts a new audio block of the given length.  Every block read
// after this call is recomputed once.
func (g *Graph) Advance(frames int) {
	g.tick++
	g.dt = float64(frames) / g.sampleRate
}

// Tick is the number of the current audio block.
func (g *Graph) Tick() uint64 { return g.tick }

func (g *Graph) Len() int { return len(g.blocks) }

func (g *Graph) add(b *Block) *Block {
	b.tick = g.tick
	g.blocks = append(g.blocks, b)
	return b
}

func (g *Graph) Const(v float64) *Block {
	return g.add(&Block{kind: KindConst, value: v})
}

func (g *Graph) LFO(c LFOConfig) *Block {
	b := &Block{
		kind:        KindLFO,
		wave:        c.Waveform,
		rate:        c.Rate,
		scale:       c.Scale,
		offset:      c.Offset,
		phaseOffset: c.PhaseOffset,
		once:        c.Once,
		interpolate: c.Interpolate,
	}
	if b.wave == nil {
		b.wave = lfoTriangle()
	}
	if b.once {
		b.phase = clamp01(b.phaseOffset)
	}
	b.value = b.offset.Current() + b.scale.Current()*b.lookup()
	return g.add(b)
}

func (g *Graph) Math(op Op, a, b, c Param) *Block {
	m := &Block{kind: KindMath, op: op, a: a, b: b, c: c}
	m.value = op.Apply(a.Current(), b.Current(), c.Current())
	return g.add(m)
}

// Lerp is a ConstrainedLerp block.
func (g *Graph) Lerp(a, b, t Param) *Block {
	return g.Math(ConstrainedLerp, a, b, t)
}

// Value evaluates b for the current block, advancing it and its inputs if
// that has not happened yet.
func (g *Graph) Value(b *Block) float64 {
	if b.tick == g.tick || b.busy {
		return b.value
	}
	b.busy = true
	switch b.kind {
	case KindLFO:
		rate := b.rate.At(g)
		b.value = b.offset.At(g) + b.scale.At(g)*b.lookup()
		b.advance(g.dt, rate)
	case KindMath:
		b.value = b.op.Apply(b.a.At(g), b.b.At(g), b.c.At(g))
	}
	b.busy = false
	b.tick = g.tick
	return b.value
}
