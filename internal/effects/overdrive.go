package effects

import "math"

// DCBlockCoeff is the pole of the overdrive's output DC blocker.
const DCBlockCoeff = 0.995

// Overdrive is an asymmetric tanh saturator followed by a one-pole DC
// blocker. The asymmetry (a drive-dependent bias) adds even harmonics and an
// offset; the blocker removes the offset again.
//
// Drive 0 bypasses the stage entirely. The blocker is primed with the first
// shaped sample after a reset or bypass, so a signal that starts on a DC
// level does not produce a slowly decaying step.
type Overdrive struct {
	drive param

	x1, y1 float64
	primed bool
}

func NewOverdrive() *Overdrive {
	return &Overdrive{}
}

// Init restores drive 0 and clears the blocker.
func (o *Overdrive) Init() {
	o.drive.Store(0)
	o.Reset()
}

func (o *Overdrive) SetDrive(g float32) { o.drive.Store(clamp(g, 0, 1)) }

func (o *Overdrive) Drive() float32 { return o.drive.Load() }

func (o *Overdrive) Reset() {
	o.x1, o.y1 = 0, 0
	o.primed = false
}

func (o *Overdrive) Process(x float32) float32 {
	d := float64(o.drive.Load())
	if d <= 0 {
		o.primed = false
		return x
	}
	pre := 1 + 9*d
	bias := 0.25 * d
	s := math.Tanh(pre*float64(x)+bias) - math.Tanh(bias)

	if !o.primed {
		o.x1 = s
		o.y1 = 0
		o.primed = true
	}
	y := s - o.x1 + DCBlockCoeff*o.y1
	o.x1 = s
	if y > -1e-18 && y < 1e-18 {
		y = 0
	}
	o.y1 = y
	return float32(y)
}
