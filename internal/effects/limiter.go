package effects

import "math"

// Limiter is a stereo-linked peak limiter for the master bus. The envelope
// rises instantly and falls with the release time; gain is reduced so the
// envelope never exceeds the ceiling.
type Limiter struct {
	ceiling param
	gain    param // last applied gain, for meters
	release float32
	env     float32
}

// NewLimiter creates a limiter.
// ceilingDB: maximum output level in dBFS (e.g. -0.3)
// releaseMs: release time in milliseconds
func NewLimiter(sampleRate int, ceilingDB, releaseMs float32) *Limiter {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if releaseMs <= 0 {
		releaseMs = 1
	}
	l := &Limiter{
		release: float32(1 - math.Exp(-1000/(float64(releaseMs)*float64(sampleRate)))),
	}
	l.SetCeilingDB(ceilingDB)
	l.gain.Store(1)
	return l
}

func (l *Limiter) SetCeilingDB(db float32) {
	db = clamp(db, -24, 0)
	l.ceiling.Store(float32(math.Pow(10, float64(db)/20)))
}

// Ceiling returns the linear ceiling.
func (l *Limiter) Ceiling() float32 { return l.ceiling.Load() }

// GainReduction returns the gain applied to the latest frame (1 = none).
// It may be called from any goroutine.
func (l *Limiter) GainReduction() float32 { return l.gain.Load() }

func (l *Limiter) Process(left, right float32) (float32, float32) {
	peak := max(abs32(left), abs32(right))
	if peak != peak {
		l.Reset()
		return 0, 0
	}
	if peak > l.env {
		l.env = peak
	} else {
		l.env += l.release * (peak - l.env)
	}
	g := float32(1)
	if c := l.ceiling.Load(); l.env > c {
		g = c / l.env
	}
	l.gain.Store(g)
	return left * g, right * g
}

func (l *Limiter) Reset() {
	l.env = 0
	l.gain.Store(1)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
