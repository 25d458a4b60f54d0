package audio

import (
	"math"
	"sync/atomic"
)

// Monitor keeps the most recent mono samples of the output for meters and
// the spectrum display. Write runs on the audio goroutine; Snapshot may run
// anywhere. A snapshot taken during a write can mix old and new samples.
type Monitor struct {
	ring []atomic.Uint32
	pos  atomic.Uint64
	peak atomic.Uint32
}

// NewMonitor keeps size samples, rounded up to a power of two.
func NewMonitor(size int) *Monitor {
	n := 1
	for n < size {
		n <<= 1
	}
	return &Monitor{ring: make([]atomic.Uint32, n)}
}

func (m *Monitor) Len() int { return len(m.ring) }

// Write records one stereo frame as its mono sum.
func (m *Monitor) Write(l, r float32) {
	v := (l + r) * 0.5
	i := m.pos.Add(1) - 1
	m.ring[i&uint64(len(m.ring)-1)].Store(math.Float32bits(v))
	a := float32(math.Abs(float64(v)))
	for {
		old := m.peak.Load()
		if a <= math.Float32frombits(old) || m.peak.CompareAndSwap(old, math.Float32bits(a)) {
			return
		}
	}
}

// Snapshot copies the latest len(dst) samples, oldest first, and returns how
// many were copied.
func (m *Monitor) Snapshot(dst []float32) int {
	n := min(len(dst), len(m.ring))
	end := m.pos.Load()
	mask := uint64(len(m.ring) - 1)
	start := end - uint64(n)
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(m.ring[(start+uint64(i))&mask].Load())
	}
	return n
}

// Peak returns the largest absolute sample since the last call and clears it.
func (m *Monitor) Peak() float32 {
	return math.Float32frombits(m.peak.Swap(0))
}
