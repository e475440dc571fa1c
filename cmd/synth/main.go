// Command synth plays patches from a MIDI file, a MIDI input or the computer
// keyboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/gordonklaus/synth"
	"github.com/gordonklaus/synth/luapatch"
	"github.com/gordonklaus/synth/midi"
	"github.com/gordonklaus/synth/play"
)

var (
	patchFile = flag.String("patch", "", "Lua patch file; the default patch if empty")
	program   = flag.Int("program", 0, "initial program number")
	midiFile  = flag.String("midi", "", "Standard MIDI File to play")
	outFile   = flag.String("o", "", "render to this WAV file instead of playing")
	backend   = flag.String("backend", "portaudio", "audio output: portaudio or oto")
	voices    = flag.Int("voices", 8, "polyphony")
	rate      = flag.Float64("rate", 44100, "sample rate")
	block     = flag.Int("block", 256, "frames per block")
	channels  = flag.Int("channels", 2, "1 or 2")
	gain      = flag.Float64("gain", .25, "master gain")
	limit     = flag.Float64("limit", 0, "master limiter level; 0 disables it")
	tail      = flag.Float64("tail", 2, "seconds rendered after the last event")
	analyze   = flag.Bool("analyze", false, "print the spectral peak of each second of output instead of playing")
	keys      = flag.Bool("keyboard", false, "play from the computer keyboard")
	hold      = flag.Duration("hold", 400*time.Millisecond, "note length for keyboard play")
	listen    = flag.Bool("listen", false, "play from a MIDI input")
	port      = flag.String("port", "", "MIDI input for -listen; the first input if empty")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	progs, err := programs()
	if err != nil {
		log.Fatal(err)
	}
	p := synth.Params{
		SampleRate: *rate,
		BlockSize:  *block,
		Channels:   *channels,
		Voices:     *voices,
		QueueSize:  256,
		Gain:       *gain,
		Limit:      *limit,
	}
	s, err := synth.NewSynth(p, progs...)
	if err != nil {
		log.Fatal(err)
	}
	if *program < 0 || *program >= len(progs) {
		log.Fatalf("program %d out of range: %d programs loaded", *program, len(progs))
	}
	s.ProgramChange(*program)
	log.Println("program:", s.Program())

	seq := &synth.Sequence{}
	if *midiFile != "" {
		if seq, err = midi.ReadFile(*midiFile); err != nil {
			log.Fatal(err)
		}
	} else if !*keys && !*listen {
		seq = scale()
	}
	q := synth.NewSequencer(s, seq)

	switch {
	case *analyze:
		report(q, seq.Duration()+*tail)
	case *outFile != "":
		n, err := play.WriteWAVFile(*outFile, q, seq.Duration()+*tail)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %.2fs to %s", float64(n)/p.SampleRate, *outFile)
	case *listen:
		if names, err := midi.Inputs(); err == nil {
			log.Println("MIDI inputs:", names)
		}
		c := play.PlayAsync(*backend, s)
		stop, err := midi.Listen(*port, s)
		if err != nil {
			log.Fatal(err)
		}
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		select {
		case <-sig:
		case <-c.Done:
		}
		stop()
		c.Stop()
		<-c.Done
	case *keys:
		c := play.PlayAsync(*backend, s)
		if err := runKeyboard(s, *hold); err != nil {
			log.Println(err)
		}
		c.Stop()
		<-c.Done
	default:
		c := play.PlayAsync(*backend, s)
		done := make(chan struct{})
		go feed(s, seq, done)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		select {
		case <-done:
			time.Sleep(time.Duration(*tail * float64(time.Second)))
		case <-sig:
		case <-c.Done:
			os.Exit(1)
		}
		c.Stop()
		<-c.Done
	}
}

func programs() ([]*synth.Program, error) {
	patches := []*synth.Patch{}
	if *patchFile == "" {
		p := synth.DefaultPatch()
		patches = append(patches, &p)
	} else {
		var err error
		if patches, err = luapatch.LoadFile(*patchFile); err != nil {
			return nil, err
		}
	}
	return luapatch.Compile(patches, synth.DefaultWaveBank())
}

// scale is a C major scale, played when there is nothing else to play.
func scale() *synth.Sequence {
	seq := &synth.Sequence{Name: "scale"}
	for i, k := range []synth.Key{60, 62, 64, 65, 67, 69, 71, 72} {
		t := .3 * float64(i)
		seq.Events = append(seq.Events,
			synth.Timed{Time: t, Event: synth.NoteOn{Key: k, Velocity: 100}},
			synth.Timed{Time: t + .25, Event: synth.NoteOff{Key: k}},
		)
	}
	return seq
}

// feed delivers seq to s in real time.
func feed(s *synth.Synth, seq *synth.Sequence, done chan<- struct{}) {
	defer close(done)
	start := time.Now()
	for _, e := range seq.Events {
		time.Sleep(time.Until(start.Add(time.Duration(e.Time * float64(time.Second)))))
		if err := s.Handle(e.Event); err != nil {
			log.Printf("%v: %v", e.Event, err)
		}
	}
}

// report renders q for the given time and prints the strongest frequency of
// each second of the first channel.
func report(q *synth.Sequencer, seconds float64) {
	p := q.Synth().Params()
	const size = 8192
	a, err := synth.NewAnalyzer(size, p.SampleRate)
	if err != nil {
		log.Fatal(err)
	}
	level := synth.NewRMS(size / p.SampleRate)
	level.InitAudio(p)
	buf := make([]float32, size*p.Channels)
	x := make([]float64, size)
	for t := 0; float64(t) < seconds; t++ {
		for rendered := 0; rendered < int(p.SampleRate); rendered += size {
			q.Render(buf)
			if rendered > 0 {
				continue
			}
			for i := range x {
				x[i] = float64(buf[i*p.Channels])
			}
			hz, mag := a.Peak(x)
			rms := level.Measure(x)
			fmt.Printf("%3ds  peak %8.1f Hz  %6.1f dB  rms %6.1f dB  %d voices\n",
				t, hz, 20*math.Log10(mag), 20*math.Log10(rms), q.Synth().Sounding())
		}
	}
}
