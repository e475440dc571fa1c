package midi

import (
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/gordonklaus/synth"
)

// A Handler accepts events from a MIDI input.  *synth.Synth is one.
type Handler interface {
	Handle(synth.Event) error
}

// Inputs lists the names of the MIDI inputs of the registered driver.
func Inputs() ([]string, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// Listen opens the named MIDI input, or the first one if name is empty, and
// passes its messages to h until stop is called.  A MIDI driver must be
// registered by importing it, e.g. gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
func Listen(name string, h Handler) (stop func(), err error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, err
	}
	var in drivers.In
	for _, i := range ins {
		if name == "" || i.String() == name {
			in = i
			break
		}
	}
	if in == nil {
		if name == "" {
			return nil, fmt.Errorf("midi: no inputs")
		}
		return nil, fmt.Errorf("midi: input %q not found", name)
	}
	if err := in.Open(); err != nil {
		return nil, err
	}
	stopListen, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		dispatch(h, msg)
	}, midi.HandleError(func(err error) {
		log.Printf("midi: %s: %v", in, err)
	}))
	if err != nil {
		in.Close()
		return nil, err
	}
	return func() {
		stopListen()
		in.Close()
	}, nil
}

func dispatch(h Handler, msg midi.Message) {
	ev, ok := Decode(msg)
	if !ok {
		return
	}
	if err := h.Handle(ev); err != nil {
		log.Printf("midi: %v: %v", ev, err)
	}
}
