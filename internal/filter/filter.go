// Package filter implements the voice filter bank: a one-pole, an RBJ biquad,
// a four-stage Moog-style ladder and a TB-303 style resonant lowpass.
//
// Every filter is stateful and must be driven from a single goroutine (the
// audio tick). Parameter setters clamp to a safe range instead of failing.
package filter

import "math"

// Filter is the per-sample contract shared by every filter in the bank.
type Filter interface {
	Init(sampleRate float64)
	SetCutoff(hz float64)
	// SetResonance takes 0..1; each filter clamps to its own stable range.
	SetResonance(r float64)
	Process(x float32) float32
	Reset()
}

// Kind selects a filter implementation at construction time.
type Kind int

const (
	KindOnePole Kind = iota
	KindBiquad
	KindMoogLadder
	KindTeeBee
)

func (k Kind) String() string {
	switch k {
	case KindOnePole:
		return "onepole"
	case KindBiquad:
		return "biquad"
	case KindMoogLadder:
		return "moog"
	case KindTeeBee:
		return "teebee"
	default:
		return "unknown"
	}
}

// ParseKind resolves a filter name as printed by Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k := KindOnePole; k <= KindTeeBee; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return KindTeeBee, false
}

// Mode selects the response of the filters that offer more than one.
type Mode int

const (
	Lowpass Mode = iota
	Highpass
)

const (
	minCutoff = 10.0
	// ResonanceLimit is the highest resonance the self-oscillating filters accept.
	ResonanceLimit = 0.99
)

// New returns an initialized filter of the given kind.
func New(kind Kind, sampleRate float64) Filter {
	var f Filter
	switch kind {
	case KindOnePole:
		f = &OnePole{}
	case KindBiquad:
		f = &Biquad{}
	case KindMoogLadder:
		f = &MoogLadder{}
	default:
		f = &TeeBee{}
	}
	f.Init(sampleRate)
	return f
}

func clampCutoff(hz, sampleRate float64) float64 {
	maxCutoff := 0.45 * sampleRate
	if math.IsNaN(hz) || hz < minCutoff {
		return minCutoff
	}
	if hz > maxCutoff {
		return maxCutoff
	}
	return hz
}

func clampResonance(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > ResonanceLimit {
		return ResonanceLimit
	}
	return r
}

func validRate(sampleRate float64) float64 {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 44100
	}
	return sampleRate
}

// flush keeps denormals and runaway values out of the delay elements.
func flush(v float64) float64 {
	if v > -1e-18 && v < 1e-18 {
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
