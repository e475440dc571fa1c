package play

import (
	"fmt"
	"io"
	"os"

	"github.com/oov/audio/wave"

	"github.com/gordonklaus/synth"
)

const bitsPerSample = 32

// WriteWAV renders q into an IEEE float WAV file until the sequence is done
// or maxTime seconds have been written, and returns the number of frames
// written.
func WriteWAV(w io.WriteSeeker, q *synth.Sequencer, maxTime float64) (int, error) {
	p := q.Synth().Params()
	channels := p.Channels
	ww, err := wave.NewWriter(w, &wave.WaveFormatExtensible{Format: wave.WaveFormatEx{
		FormatTag:      wave.WAVE_FORMAT_IEEE_FLOAT,
		Channels:       uint16(channels),
		SamplesPerSec:  uint32(p.SampleRate),
		BitsPerSample:  bitsPerSample,
		AvgBytesPerSec: uint32(p.SampleRate * float64(channels) * bitsPerSample / 8),
		BlockAlign:     uint16(channels * bitsPerSample / 8),
	}})
	if err != nil {
		return 0, err
	}

	buf := make([]float32, p.BlockSize*channels)
	data := make([][]float64, channels)
	for c := range data {
		data[c] = make([]float64, p.BlockSize)
	}
	maxFrames := int(maxTime * p.SampleRate)
	frames := 0
	for frames < maxFrames && !(frames > 0 && q.Done()) {
		n := min(p.BlockSize, maxFrames-frames)
		q.Render(buf[:n*channels])
		for c := range data {
			data[c] = data[c][:n]
			for i := range data[c] {
				data[c][i] = float64(buf[i*channels+c])
			}
		}
		m, err := ww.WriteFloat64Interleaved(data)
		if err == nil && m != n {
			err = fmt.Errorf("play: short write")
		}
		if err != nil {
			ww.Close()
			return frames + m, err
		}
		frames += n
	}
	return frames, ww.Close()
}

// WriteWAVFile is WriteWAV to a new file.
func WriteWAVFile(path string, q *synth.Sequencer, maxTime float64) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return WriteWAV(f, q, maxTime)
}
