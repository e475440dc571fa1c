package synth

import (
	"fmt"
	"math"
	"reflect"
)

// Params is the engine-wide configuration shared by every component.
type Params struct {
	SampleRate float64
	BlockSize  int // frames per modulation block
	Channels   int // 1 or 2, interleaved
	Voices     int // polyphony
	QueueSize  int // pending events between renders
	Gain       float64
	Limit      float64 // RMS limit of the master bus; 0 disables the limiter
}

func DefaultParams() Params {
	return Params{
		SampleRate: 44100,
		BlockSize:  256,
		Channels:   2,
		Voices:     8,
		QueueSize:  256,
		Gain:       .25,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.SampleRate > 0) || math.IsInf(p.SampleRate, 0):
		return fmt.Errorf("%w: sample rate %v", ErrInvalidParameter, p.SampleRate)
	case p.BlockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidParameter, p.BlockSize)
	case p.Channels != 1 && p.Channels != 2:
		return fmt.Errorf("%w: %d channels", ErrInvalidParameter, p.Channels)
	case p.Voices <= 0:
		return fmt.Errorf("%w: %d voices", ErrInvalidParameter, p.Voices)
	case p.QueueSize <= 0:
		return fmt.Errorf("%w: queue size %d", ErrInvalidParameter, p.QueueSize)
	case !(p.Gain >= 0):
		return fmt.Errorf("%w: gain %v", ErrInvalidParameter, p.Gain)
	case !(p.Limit >= 0):
		return fmt.Errorf("%w: limit %v", ErrInvalidParameter, p.Limit)
	}
	return nil
}

// BlockDuration is the length in seconds of a full block.
func (p Params) BlockDuration() float64 { return float64(p.BlockSize) / p.SampleRate }

func (p *Params) InitAudio(q Params) { *p = q }

type Initer interface {
	InitAudio(Params)
}

// Init calls InitAudio on x, or on every exported field or element of x
// that implements Initer.
func Init(x interface{}, p Params) {
	if err := initVal(reflect.ValueOf(x), p); err != nil {
		panic("synth.Init: " + err.Error())
	}
}

var initerType = reflect.TypeOf(new(Initer)).Elem()

func initVal(v reflect.Value, p Params) (err error) {
	if !v.IsValid() || v.Kind() == reflect.Ptr && v.IsNil() || !v.CanInterface() {
		return
	}

	v = reflect.Indirect(v)
	if v.CanAddr() && v.Type().Name() != "" && v.Kind() != reflect.Interface {
		v = v.Addr()
	}
	if x, ok := v.Interface().(Initer); ok {
		x.InitAudio(p)
		return
	}

	defer func() {
		if err != nil {
			err = fmt.Errorf("%s\n\t%#v", err, v)
		}
	}()
	if t := v.Type(); reflect.PtrTo(t).Implements(initerType) {
		return fmt.Errorf("%s does not implement synth.Initer but *%s does.\nInit stack:", t, t)
	}

	v = reflect.Indirect(v)
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err = initVal(v.Field(i), p); err != nil {
				return
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err = initVal(v.Index(i), p); err != nil {
				return
			}
		}
	}
	return
}
