package effects

import "math"

// EQBands is the number of bands of the master equalizer.
const EQBands = 5

// EQCrossovers are the split points between adjacent bands in Hz.
var EQCrossovers = [EQBands - 1]float64{120, 500, 2000, 6000}

// EQ5Band splits the signal with cascaded one-pole lowpasses and sums the
// bands back with per-band gains. With every gain at unity the bands sum to
// the input exactly.
type EQ5Band struct {
	gains [EQBands]param
	alpha [EQBands - 1]float32
	l, r  eqState
}

type eqState [EQBands - 1]float32

func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	for i, fc := range EQCrossovers {
		eq.alpha[i] = float32(1 - math.Exp(-2*math.Pi*fc/float64(sampleRate)))
	}
	for i := range eq.gains {
		eq.gains[i].Store(1)
	}
	return eq
}

// SetGain sets a band's linear gain (0..4). Out-of-range bands are ignored.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if band < 0 || band >= EQBands {
		return
	}
	eq.gains[band].Store(clamp(gain, 0, 4))
}

// SetGainDB sets a band's gain in decibels (-24..+12).
func (eq *EQ5Band) SetGainDB(band int, db float32) {
	db = clamp(db, -24, 12)
	eq.SetGain(band, float32(math.Pow(10, float64(db)/20)))
}

func (eq *EQ5Band) Gain(band int) float32 {
	if band < 0 || band >= EQBands {
		return 1
	}
	return eq.gains[band].Load()
}

func (eq *EQ5Band) Process(l, r float32) (float32, float32) {
	var g [EQBands]float32
	for i := range g {
		g[i] = eq.gains[i].Load()
	}
	return eq.l.split(l, &eq.alpha, &g), eq.r.split(r, &eq.alpha, &g)
}

func (s *eqState) split(x float32, alpha *[EQBands - 1]float32, g *[EQBands]float32) float32 {
	var out float32
	rest := x
	for i := range s {
		s[i] += alpha[i] * (rest - s[i])
		out += s[i] * g[i]
		rest -= s[i]
	}
	return out + rest*g[EQBands-1]
}

func (eq *EQ5Band) Reset() {
	eq.l = eqState{}
	eq.r = eqState{}
}
