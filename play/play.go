// Package play connects a synth to an audio device or a file.
package play

import (
	"fmt"
	"log"

	"github.com/gordonklaus/synth"
)

// A Player is a running output.
type Player interface {
	Close() error
}

// Backends lists the device outputs by name.
var Backends = []string{"portaudio", "oto"}

// Start opens the named backend and starts pulling audio from s.
func Start(backend string, s *synth.Synth) (Player, error) {
	switch backend {
	case "", "portaudio":
		return PortAudio(s)
	case "oto":
		return Oto(s)
	}
	return nil, fmt.Errorf("play: unknown backend %q", backend)
}

// PlayAsync starts playback and returns a control for stopping it.  Errors
// are logged; Done is signalled when playback has stopped.
func PlayAsync(backend string, s *synth.Synth) PlayControl {
	c := PlayControl{make(chan struct{}, 1), make(chan struct{}, 1)}
	p, err := Start(backend, s)
	if err != nil {
		log.Println(err)
		close(c.Done)
		return c
	}

	go func() {
		<-c.stop
		if err := p.Close(); err != nil {
			log.Println(err)
		}
		c.Done <- struct{}{}
	}()
	return c
}

type PlayControl struct {
	stop, Done chan struct{}
}

func (c PlayControl) Stop() {
	select {
	case c.stop <- struct{}{}:
	default:
	}
}
