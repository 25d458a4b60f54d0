// Package dsp holds the read-only lookup tables and scalar helpers shared by
// the voice, filter and sampler packages.
package dsp

import (
	"math"
	"sync"
)

const (
	TwoPi = 2 * math.Pi

	// TableSize is the number of segments in the sine table. The table
	// carries one guard entry so interpolation never wraps.
	TableSize = 1024
)

var (
	tablesOnce sync.Once
	sinTable   [TableSize + 1]float32
	noteFreq   [128]float64
)

// InitTables builds the lookup tables. It is safe to call more than once;
// only the first call computes anything. Engines call it from their
// constructors so the tables exist before the first audio tick.
func InitTables() {
	tablesOnce.Do(func() {
		for i := 0; i <= TableSize; i++ {
			sinTable[i] = float32(math.Sin(TwoPi * float64(i) / TableSize))
		}
		for n := range noteFreq {
			noteFreq[n] = 440 * math.Pow(2, float64(n-69)/12)
		}
	})
}

// Sin returns sin(2*pi*phase) for phase in [0, 1) by table interpolation.
func Sin(phase float64) float32 {
	pos := phase * TableSize
	i := int(pos)
	if i < 0 {
		i = 0
	} else if i >= TableSize {
		i = TableSize - 1
	}
	frac := float32(pos - float64(i))
	return sinTable[i] + frac*(sinTable[i+1]-sinTable[i])
}

// MidiToFreq returns the equal-tempered frequency of a MIDI note (A4 = 440 Hz).
// Fractional notes are interpolated exponentially between table entries.
func MidiToFreq(note float64) float64 {
	if note >= 0 && note <= 127 && note == math.Trunc(note) {
		return noteFreq[int(note)]
	}
	return 440 * math.Pow(2, (note-69)/12)
}

// SinTable exposes a copy of table entry i for tests and diagnostics.
func SinTable(i int) float32 {
	if i < 0 || i > TableSize {
		return 0
	}
	return sinTable[i]
}
