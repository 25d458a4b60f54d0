package acidbox

import (
	"fmt"
	"os"

	intaudio "github.com/cbegin/acidbox-go/internal/audio"
	intseq "github.com/cbegin/acidbox-go/internal/sequencer"
)

// MaxRenderSeconds bounds RenderFile when the file never ends.
const MaxRenderSeconds = 600

// Render plays events through engine and returns seconds of interleaved
// stereo output. Events past the end are not applied.
func Render(engine *Engine, events []intseq.Event, seconds float64) []float32 {
	var frames int
	if seconds > 0 {
		frames = int(float64(engine.SampleRate()) * seconds)
	}
	out := make([]float32, frames*2)
	seq := intseq.New(events, engine, engine.SampleRate(), intseq.Options{})
	seq.Process(out)
	return out
}

// RenderFile renders a Standard MIDI File to a 16-bit stereo WAV file. It
// stops after the last note's release tail and returns the rendered length
// in frames.
func RenderFile(midiPath, wavPath string, sampleRate int, opts ...EngineOption) (int, error) {
	engine, err := NewEngine(sampleRate, opts...)
	if err != nil {
		return 0, err
	}
	events, err := intseq.ReadFile(midiPath, sampleRate)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(wavPath)
	if err != nil {
		return 0, err
	}
	seq := intseq.New(events, engine, sampleRate, intseq.Options{
		ReleaseTailFrames: sampleRate, // let the sends ring out
	})
	n, err := intaudio.RenderWAV(f, seq, sampleRate, MaxRenderSeconds*sampleRate)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", wavPath, cerr)
	}
	return n, err
}
