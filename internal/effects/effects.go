// Package effects holds the voice waveshapers (Wavefolder, Overdrive) and the
// stereo bus processors used for the send returns and the master bus.
package effects

import (
	"math"
	"sync/atomic"
)

// Shaper processes a mono signal one sample at a time.
type Shaper interface {
	Process(x float32) float32
}

// Effector processes stereo audio one frame at a time.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a fixed sequence of effects in order. It is assembled once
// and never modified while the audio tick runs.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Len() int { return len(c.effects) }

// param is a float32 readable from the audio tick while another goroutine
// writes it. Stores are single-word so a reader never sees a torn value.
type param struct {
	bits atomic.Uint32
}

func (p *param) Load() float32 { return math.Float32frombits(p.bits.Load()) }

func (p *param) Store(v float32) { p.bits.Store(math.Float32bits(v)) }

func clamp(v, lo, hi float32) float32 {
	if v < lo || v != v {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
