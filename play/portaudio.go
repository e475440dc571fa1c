package play

import (
	"github.com/gordonklaus/portaudio"

	"github.com/gordonklaus/synth"
)

// A Stream plays a synth through the default PortAudio output device.
type Stream struct {
	stream *portaudio.Stream
}

// PortAudio opens the default output device with the synth's sample rate,
// channel count and block size, and starts it.
func PortAudio(s *synth.Synth) (*Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	p := s.Params()
	stream, err := portaudio.OpenDefaultStream(0, p.Channels, p.SampleRate, p.BlockSize, s.Render)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return &Stream{stream}, nil
}

func (s *Stream) Close() error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
