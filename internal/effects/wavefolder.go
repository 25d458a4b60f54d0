package effects

import "math"

const (
	foldThreshold = 1.0
	// MaxFoldDrive bounds the drive so the folded signal keeps a sane number
	// of reflections per cycle.
	MaxFoldDrive = 8.0
)

// Wavefolder amplifies the input by 1+drive and reflects everything beyond
// +/-1 back into range. Drive 0 leaves signals inside [-1, 1] untouched.
type Wavefolder struct {
	drive param
}

func NewWavefolder() *Wavefolder {
	return &Wavefolder{}
}

// Init restores the pass-through setting.
func (w *Wavefolder) Init() { w.drive.Store(0) }

func (w *Wavefolder) SetDrive(g float32) { w.drive.Store(clamp(g, 0, MaxFoldDrive)) }

func (w *Wavefolder) Drive() float32 { return w.drive.Load() }

func (w *Wavefolder) Process(x float32) float32 {
	v := float64(x) * (1 + float64(w.drive.Load()))
	if v < 0 {
		return -float32(fold(-v))
	}
	return float32(fold(v))
}

// fold maps a non-negative value onto a triangle of period 4T: it follows the
// input up to T, reflects down through 0 to -T, then climbs back.
func fold(v float64) float64 {
	if v <= foldThreshold {
		return v
	}
	p := math.Mod(v, 4*foldThreshold)
	switch {
	case p <= foldThreshold:
		return p
	case p <= 3*foldThreshold:
		return 2*foldThreshold - p
	default:
		return p - 4*foldThreshold
	}
}
