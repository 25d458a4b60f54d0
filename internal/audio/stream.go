// Package audio moves interleaved stereo float32 frames from a SampleSource to
// the output device or to a WAV file.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Channels is the frame width everywhere in this package.
const Channels = 2

const bytesPerFrame = Channels * 4

// SampleSource fills dst with interleaved stereo frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream returns io.EOF after the current
// read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// SourceFunc adapts a function to a SampleSource.
type SourceFunc func(dst []float32)

func (f SourceFunc) Process(dst []float32) { f(dst) }

// StreamReader adapts a SampleSource to an io.Reader of f32le frames. Reads
// are whole frames; a short p yields 0 bytes.
type StreamReader struct {
	source SampleSource
	buf    []float32
	frames atomic.Int64
	closed atomic.Bool
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * Channels
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	r.frames.Add(int64(frames))
	n := frames * bytesPerFrame
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

// Frames is the number of frames handed to the reader's consumer.
func (r *StreamReader) Frames() int64 { return r.frames.Load() }

func (r *StreamReader) Close() error {
	r.closed.Store(true)
	return nil
}

var (
	ctxOnce sync.Once
	ctx     *ebitaudio.Context
	ctxRate int
)

// sharedContext returns the process-wide audio context; ebiten allows only
// one, so later callers must ask for the same rate.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	ctxOnce.Do(func() {
		ctxRate = sampleRate
		ctx = ebitaudio.NewContext(sampleRate)
	})
	if ctxRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", ctxRate, sampleRate)
	}
	return ctx, nil
}

// Player plays a SampleSource on the shared ebiten audio context.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

// NewPlayer prepares playback; call Play to start. bufferSize 0 keeps the
// backend default.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("new audio player: %w", err)
	}
	if bufferSize > 0 {
		pl.SetBufferSize(bufferSize)
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

// Position returns what the listener hears right now.
func (p *Player) Position() time.Duration { return p.player.Position() }

// Rendered is the number of frames pulled from the source, which runs ahead
// of Position by the device buffer.
func (p *Player) Rendered() int64 { return p.reader.Frames() }

func (p *Player) Stop() error {
	p.player.Pause()
	err := p.player.Close()
	if cerr := p.reader.Close(); err == nil {
		err = cerr
	}
	return err
}
