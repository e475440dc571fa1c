// Package midi translates MIDI messages and Standard MIDI Files into synth
// events.
package midi

import (
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/gordonklaus/synth"
)

// Decode converts msg into a synth event.  Messages the synth has no use for
// (clock, sysex, aftertouch, meta events) report false.
func Decode(msg midi.Message) (synth.Event, bool) {
	var ch, key, vel, cc, val, prog uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return synth.NoteOn{Key: synth.Key(key), Velocity: vel}, true
	case msg.GetNoteEnd(&ch, &key):
		return synth.NoteOff{Key: synth.Key(key)}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return synth.ControlChange{ID: cc, Value: val}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return synth.PitchBend{Amount: bendAmount(rel)}, true
	case msg.GetProgramChange(&ch, &prog):
		return synth.ProgramChange{Program: int(prog)}, true
	}
	return nil, false
}

// bendAmount maps a relative 14-bit bend onto [-1, 1].
func bendAmount(rel int16) float64 {
	if rel < 0 {
		return float64(rel) / 8192
	}
	return float64(rel) / 8191
}

// ReadSequence reads every track of a Standard MIDI File into one sequence,
// timed in seconds according to the file's tempo map.
func ReadSequence(r io.Reader) (*synth.Sequence, error) {
	seq := &synth.Sequence{}
	rd := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		if ev, ok := Decode(midi.Message(te.Message)); ok {
			seq.Events = append(seq.Events, synth.Timed{
				Time:  float64(te.AbsMicroSeconds) / 1e6,
				Event: ev,
			})
		}
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("midi: %w", err)
	}
	seq.Sort()
	return seq, nil
}

func ReadFile(path string) (*synth.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	seq, err := ReadSequence(f)
	if err != nil {
		return nil, err
	}
	seq.Name = path
	return seq, nil
}
