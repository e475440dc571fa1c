package play

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/gordonklaus/synth"
)

// An OtoPlayer plays a synth through oto, which pulls samples from a Reader.
type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player
}

// Oto creates the process's oto context and starts playing s.  Only one oto
// context may exist at a time.
func Oto(s *synth.Synth) (*OtoPlayer, error) {
	p := s.Params()
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(p.SampleRate),
		ChannelCount: p.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(4 * p.BlockDuration() * float64(time.Second)),
	})
	if err != nil {
		return nil, err
	}
	<-ready
	o := &OtoPlayer{ctx: ctx, player: ctx.NewPlayer(NewReader(s))}
	o.player.Play()
	return o, nil
}

func (o *OtoPlayer) Close() error {
	return o.player.Close()
}

// A Reader renders a synth as little-endian float32 frames.
type Reader struct {
	synth *synth.Synth
	frame int
	buf   []float32
}

func NewReader(s *synth.Synth) *Reader {
	p := s.Params()
	return &Reader{synth: s, frame: 4 * p.Channels, buf: make([]float32, p.BlockSize*p.Channels)}
}

// Read fills p with whole frames.  It never returns an error.
func (r *Reader) Read(p []byte) (int, error) {
	n := len(p) / r.frame * r.frame / 4
	if n > cap(r.buf) {
		r.buf = make([]float32, n)
	}
	buf := r.buf[:n]
	r.synth.Render(buf)
	for i, x := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(x))
	}
	return 4 * n, nil
}
