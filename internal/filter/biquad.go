package filter

import "math"

const (
	minQ = 0.1
	maxQ = 20.0
)

// Biquad is a second-order IIR section using the RBJ cookbook designs,
// evaluated in direct form I.
type Biquad struct {
	sampleRate float64
	freq       float64
	q          float64
	mode       Mode

	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

func (f *Biquad) Init(sampleRate float64) {
	f.sampleRate = validRate(sampleRate)
	if f.freq == 0 {
		f.freq = 1000
	}
	if f.q == 0 {
		f.q = 1 / math.Sqrt2
	}
	f.Reset()
	f.design()
}

func (f *Biquad) SetMode(m Mode) {
	f.mode = m
	f.design()
}

func (f *Biquad) Mode() Mode { return f.mode }

func (f *Biquad) SetFreq(hz float64) {
	f.freq = hz
	f.design()
}

func (f *Biquad) SetCutoff(hz float64) { f.SetFreq(hz) }

func (f *Biquad) Freq() float64 { return f.freq }

func (f *Biquad) SetQ(q float64) {
	if math.IsNaN(q) || q < minQ {
		q = minQ
	}
	if q > maxQ {
		q = maxQ
	}
	f.q = q
	f.design()
}

func (f *Biquad) Q() float64 { return f.q }

// SetResonance maps 0..1 onto Q from Butterworth (0.707) up to 12.
func (f *Biquad) SetResonance(r float64) {
	f.SetQ(1/math.Sqrt2 + clampResonance(r)*11.3)
}

func (f *Biquad) design() {
	if f.sampleRate == 0 {
		f.sampleRate = 44100
	}
	if f.q == 0 {
		f.q = 1 / math.Sqrt2
	}
	f.freq = clampCutoff(f.freq, f.sampleRate)
	w := 2 * math.Pi * f.freq / f.sampleRate
	cosW := math.Cos(w)
	alpha := math.Sin(w) / (2 * f.q)
	a0 := 1 + alpha
	switch f.mode {
	case Highpass:
		f.b0 = (1 + cosW) / 2 / a0
		f.b1 = -(1 + cosW) / a0
		f.b2 = f.b0
	default:
		f.b0 = (1 - cosW) / 2 / a0
		f.b1 = (1 - cosW) / a0
		f.b2 = f.b0
	}
	f.a1 = -2 * cosW / a0
	f.a2 = (1 - alpha) / a0
}

func (f *Biquad) Process(x float32) float32 {
	in := float64(x)
	y := f.b0*in + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2 = f.x1
	f.x1 = in
	f.y2 = f.y1
	f.y1 = flush(y)
	return float32(f.y1)
}

func (f *Biquad) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
}
