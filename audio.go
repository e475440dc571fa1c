package synth

type Audio []float64

func (a *Audio) InitAudio(p Params) {
	*a = make(Audio, p.BlockSize)
}

func (z Audio) Zero() Audio {
	for i := range z {
		z[i] = 0
	}
	return z
}

func (z Audio) Add(x Audio, y Audio) Audio {
	for i := range z {
		z[i] = x[i] + y[i]
	}
	return z
}

func (z Audio) Mul(x Audio, y Audio) Audio {
	for i := range z {
		z[i] = x[i] * y[i]
	}
	return z
}

func (z Audio) MulX(x Audio, f float64) Audio {
	for i := range z {
		z[i] = x[i] * f
	}
	return z
}

// AddMulX sets z = x + y*f.
func (z Audio) AddMulX(x, y Audio, f float64) Audio {
	for i := range z {
		z[i] = x[i] + y[i]*f
	}
	return z
}

// Peak returns the largest absolute sample.
func (z Audio) Peak() float64 {
	m := 0.0
	for _, x := range z {
		if x < 0 {
			x = -x
		}
		if x > m {
			m = x
		}
	}
	return m
}
