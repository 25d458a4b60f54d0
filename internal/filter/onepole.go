package filter

import "math"

// OnePole is a single real-pole lowpass/highpass with no overshoot.
type OnePole struct {
	sampleRate float64
	cutoff     float64
	mode       Mode
	a          float64 // pole, exp(-2*pi*fc/fs)
	y1         float64
}

func (f *OnePole) Init(sampleRate float64) {
	f.sampleRate = validRate(sampleRate)
	if f.cutoff == 0 {
		f.cutoff = 1000
	}
	f.y1 = 0
	f.update()
}

func (f *OnePole) SetMode(m Mode) { f.mode = m }

func (f *OnePole) Mode() Mode { return f.mode }

func (f *OnePole) SetCutoff(hz float64) {
	f.cutoff = hz
	f.update()
}

func (f *OnePole) Cutoff() float64 { return f.cutoff }

// SetResonance is accepted for interface compatibility; a single pole has none.
func (f *OnePole) SetResonance(float64) {}

func (f *OnePole) update() {
	if f.sampleRate == 0 {
		f.sampleRate = 44100
	}
	f.cutoff = clampCutoff(f.cutoff, f.sampleRate)
	f.a = math.Exp(-2 * math.Pi * f.cutoff / f.sampleRate)
}

func (f *OnePole) Process(x float32) float32 {
	in := float64(x)
	f.y1 = flush((1-f.a)*in + f.a*f.y1)
	if f.mode == Highpass {
		return float32(in - f.y1)
	}
	return float32(f.y1)
}

func (f *OnePole) Reset() { f.y1 = 0 }
