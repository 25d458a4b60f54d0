package filter

import (
	"math"

	"github.com/cbegin/acidbox-go/internal/dsp"
)

// MoogLadder approximates the transistor ladder: four cascaded one-pole
// lowpass stages with a single resonance feedback path from the last stage.
// The feedback sum is saturated before entering the ladder, so every stage
// state stays inside [-1, 1] for any resonance and input.
type MoogLadder struct {
	sampleRate float64
	freq       float64
	res        float64
	g          float64
	stage      [4]float64
}

func (f *MoogLadder) Init(sampleRate float64) {
	f.sampleRate = validRate(sampleRate)
	if f.freq == 0 {
		f.freq = 1000
	}
	f.Reset()
	f.update()
}

func (f *MoogLadder) SetFreq(hz float64) {
	f.freq = hz
	f.update()
}

func (f *MoogLadder) SetCutoff(hz float64) { f.SetFreq(hz) }

func (f *MoogLadder) Freq() float64 { return f.freq }

func (f *MoogLadder) SetRes(r float64) { f.res = clampResonance(r) }

func (f *MoogLadder) SetResonance(r float64) { f.SetRes(r) }

func (f *MoogLadder) Res() float64 { return f.res }

func (f *MoogLadder) update() {
	if f.sampleRate == 0 {
		f.sampleRate = 44100
	}
	f.freq = clampCutoff(f.freq, f.sampleRate)
	f.g = 1 - math.Exp(-2*math.Pi*f.freq/f.sampleRate)
}

func (f *MoogLadder) Process(x float32) float32 {
	in := float64(dsp.FastTanh(float32(float64(x) - 4*f.res*f.stage[3])))
	f.stage[0] = flush(f.stage[0] + f.g*(in-f.stage[0]))
	f.stage[1] = flush(f.stage[1] + f.g*(f.stage[0]-f.stage[1]))
	f.stage[2] = flush(f.stage[2] + f.g*(f.stage[1]-f.stage[2]))
	f.stage[3] = flush(f.stage[3] + f.g*(f.stage[2]-f.stage[3]))
	return float32(f.stage[3])
}

func (f *MoogLadder) Reset() {
	f.stage = [4]float64{}
}
