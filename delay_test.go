package synth

import (
	"math"
	"testing"
)

func TestDelayLineTap(t *testing.T) {
	d := NewDelayLine(.1)
	Init(d, Params{SampleRate: 100})
	if d.Len() != 10 {
		t.Fatalf("length %d, want 10", d.Len())
	}
	for i := 1; i <= 12; i++ {
		d.Write(float64(i))
	}
	for n, want := range map[float64]float64{
		1:   12,
		3:   10,
		2.5: 10.5,
		10:  3,
		20:  3, // clamped to the line length
		0:   12,
	} {
		if got := d.Tap(n); math.Abs(got-want) > 1e-12 {
			t.Errorf("Tap(%v) = %v, want %v", n, got, want)
		}
	}
}

func impulse(n int) Audio {
	a := make(Audio, n)
	a[0] = 1
	return a
}

func TestEchoRepeats(t *testing.T) {
	e := NewEcho(.5)
	Init(e, Params{SampleRate: 100})
	out := e.Process(impulse(50), .1, .5, 1)
	for i, x := range out {
		want := 0.0
		switch i {
		case 10:
			want = 1
		case 20:
			want = .5
		case 30:
			want = .25
		case 40:
			want = .125
		}
		if math.Abs(x-want) > 1e-12 {
			t.Errorf("sample %d is %v, want %v", i, x, want)
		}
	}
}

func TestEchoMix(t *testing.T) {
	e := NewEcho(.5)
	Init(e, Params{SampleRate: 100})
	out := e.Process(impulse(20), .1, .5, 0)
	for i, x := range out {
		if want := impulse(20)[i]; x != want {
			t.Errorf("dry sample %d is %v, want %v", i, x, want)
		}
	}

	e.Reset()
	out = e.Process(impulse(20), .1, 0, .5)
	if out[0] != .5 || math.Abs(out[10]-.5) > 1e-12 {
		t.Errorf("half mix gives %v and %v", out[0], out[10])
	}
}

func TestEchoFractionalDelay(t *testing.T) {
	e := NewEcho(.5)
	Init(e, Params{SampleRate: 100})
	out := e.Process(impulse(20), .055, 0, 1)
	if math.Abs(out[5]-.5) > 1e-9 || math.Abs(out[6]-.5) > 1e-9 {
		t.Errorf("impulse delayed 5.5 samples reads %v, %v", out[5], out[6])
	}
}

func TestEchoBadInput(t *testing.T) {
	e := NewEcho(.5)
	Init(e, Params{SampleRate: 100})
	for _, c := range [][3]float64{
		{math.NaN(), .5, .5},
		{.1, math.NaN(), .5},
		{.1, .5, math.NaN()},
		{math.Inf(1), 2, 1},
		{-1, -1, -1},
	} {
		for i, x := range e.Process(impulse(100), c[0], c[1], c[2]) {
			if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) > 2 {
				t.Fatalf("%v: sample %d is %v", c, i, x)
			}
		}
	}
}

func BenchmarkEcho(b *testing.B) {
	e := NewEcho(.05)
	Init(e, Params{SampleRate: 44100})
	a := make(Audio, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Process(a, .02+.01*math.Sin(float64(i)/100), .7, .5)
	}
}
