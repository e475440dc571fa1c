package synth

import (
	"math"
	"math/rand"
	"testing"
)

func TestLimiter(t *testing.T) {
	l := NewLimiter(.1, .01, .5)
	Init(l, Params{SampleRate: 1000})
	for i := 0; i < 100; i++ {
		if y := l.Limit(0); y != 0 {
			t.Fatalf("silence became %v", y)
		}
	}
	if l.Gain() != 1 {
		t.Errorf("gain %v over silence", l.Gain())
	}
	for i := 0; i < 2000; i++ {
		y := l.Limit(math.Sin(float64(i)))
		if math.IsNaN(y) || l.Gain() > 1 {
			t.Fatalf("sample %d: %v at gain %v", i, y, l.Gain())
		}
	}
	if g := l.Gain(); g >= .5 || g <= 0 {
		t.Errorf("gain %v for a loud signal", g)
	}
}

func BenchmarkLimiter(b *testing.B) {
	x := make([]float64, 1024)
	for i := range x {
		x[i] = 8*rand.Float64() - 4
	}
	l := NewLimiter(.5, .01, .1)
	Init(l, Params{SampleRate: 96000})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Limit(x[i&(1<<10-1)])
	}
}

func TestRMS(t *testing.T) {
	r := NewRMS(.1)
	Init(r, Params{SampleRate: 100})
	if a := r.Amplitude(); a != 0 {
		t.Errorf("empty window reads %v", a)
	}
	x := make(Audio, 25)
	for i := range x {
		x[i] = .5
		if i%2 == 1 {
			x[i] = -.5
		}
	}
	if a := r.Measure(x); math.Abs(a-.5) > 1e-12 {
		t.Errorf("got %v, want .5", a)
	}
	if a := r.Measure(make(Audio, 10)); a != 0 {
		t.Errorf("window not emptied: %v", a)
	}
}
