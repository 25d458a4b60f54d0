package filter

import "math"

const (
	teeBeeFeedbackHPF = 150.0
	teeBeeMaxFeedback = 4.0
	teeBeeClip        = math.Sqrt2
)

var teeBeeSkewNorm = 1 / (1 - math.Exp(-3))

// TeeBee is a resonant four-pole lowpass voiced after the TB-303: the
// resonance control is skewed so most of its travel sits in the squelchy
// range, the feedback path runs through a 150 Hz highpass (bass survives
// high resonance) and a cubic soft clipper, and the output gets a little
// make-up gain as resonance rises.
type TeeBee struct {
	sampleRate float64
	cutoff     float64
	resRaw     float64
	k          float64 // feedback gain
	makeup     float64
	g          float64 // stage coefficient
	hpA        float64 // feedback highpass coefficient
	hpX1, hpY1 float64
	stage      [4]float64
}

func (f *TeeBee) Init(sampleRate float64) {
	f.sampleRate = validRate(sampleRate)
	if f.cutoff == 0 {
		f.cutoff = 1000
	}
	f.hpA = math.Exp(-2 * math.Pi * teeBeeFeedbackHPF / f.sampleRate)
	f.Reset()
	f.updateCutoff()
	f.updateResonance()
}

func (f *TeeBee) SetCutoff(hz float64) {
	f.cutoff = hz
	f.updateCutoff()
}

func (f *TeeBee) Cutoff() float64 { return f.cutoff }

func (f *TeeBee) SetResonance(r float64) {
	f.resRaw = clampResonance(r)
	f.updateResonance()
}

func (f *TeeBee) Resonance() float64 { return f.resRaw }

func (f *TeeBee) updateCutoff() {
	if f.sampleRate == 0 {
		f.Init(44100)
		return
	}
	f.cutoff = clampCutoff(f.cutoff, f.sampleRate)
	f.g = 1 - math.Exp(-2*math.Pi*f.cutoff/f.sampleRate)
}

func (f *TeeBee) updateResonance() {
	skewed := (1 - math.Exp(-3*f.resRaw)) * teeBeeSkewNorm
	f.k = teeBeeMaxFeedback * skewed
	f.makeup = 1 + 0.5*skewed
}

// shape is a cubic soft clip, monotonic on [-sqrt2, sqrt2] and flat beyond.
func shape(x float64) float64 {
	if x > teeBeeClip {
		x = teeBeeClip
	} else if x < -teeBeeClip {
		x = -teeBeeClip
	}
	return x - x*x*x/6
}

func (f *TeeBee) Process(x float32) float32 {
	fb := f.k * shape(f.stage[3])
	hp := f.hpA * (f.hpY1 + fb - f.hpX1)
	f.hpX1 = fb
	f.hpY1 = flush(hp)

	y0 := float64(x) - hp
	f.stage[0] = flush(f.stage[0] + f.g*(y0-f.stage[0]))
	f.stage[1] = flush(f.stage[1] + f.g*(f.stage[0]-f.stage[1]))
	f.stage[2] = flush(f.stage[2] + f.g*(f.stage[1]-f.stage[2]))
	f.stage[3] = flush(f.stage[3] + f.g*(f.stage[2]-f.stage[3]))
	return float32(f.stage[3] * f.makeup)
}

func (f *TeeBee) Reset() {
	f.stage = [4]float64{}
	f.hpX1, f.hpY1 = 0, 0
}
