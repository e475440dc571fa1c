package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/gordonklaus/synth"
)

// Two rows of a qwerty keyboard laid out like a piano octave and a bit.
const keyRow = "awsedftgyhujkolp;'"

// keyboard turns terminal key presses into note events.  Terminals do not
// report key releases, so each note is released after hold.
type keyboard struct {
	synth  *synth.Synth
	hold   time.Duration
	octave int
}

func (k *keyboard) key(b byte) (synth.Key, bool) {
	i := strings.IndexByte(keyRow, b)
	if i < 0 {
		return 0, false
	}
	return synth.Key(12*k.octave + i), true
}

func (k *keyboard) send(ev synth.Event) {
	if err := k.synth.Handle(ev); err != nil {
		log.Printf("%v: %v\r", ev, err)
	}
}

// handle reacts to one key and reports whether to quit.
func (k *keyboard) handle(b byte) bool {
	switch {
	case b == 'q' || b == 3:
		return true
	case b == 'z' && k.octave > 0:
		k.octave--
	case b == 'x' && k.octave < 9:
		k.octave++
	case b >= '1' && b <= '9':
		k.send(synth.ProgramChange{Program: int(b - '1')})
	case b == ' ':
		k.send(synth.ControlChange{ID: synth.CCAllNotesOff})
	default:
		key, ok := k.key(b)
		if !ok {
			break
		}
		k.send(synth.NoteOn{Key: key, Velocity: 100})
		time.AfterFunc(k.hold, func() { k.send(synth.NoteOff{Key: key}) })
	}
	return false
}

func runKeyboard(s *synth.Synth, hold time.Duration) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, old)

	fmt.Printf("play on %s; z/x octave, 1-9 program, space all off, q quit\r\n", keyRow)
	k := &keyboard{synth: s, hold: hold, octave: 5}
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 1 && k.handle(buf[0]) {
			return nil
		}
	}
}
