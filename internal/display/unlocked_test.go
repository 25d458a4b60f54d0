//go:build !race

package display

import (
	"testing"
	"time"
)

// These tests race on the transfer buffer on purpose or measure wall-clock
// time, so they are left out of -race runs.

func TestUnlockedFillsCollide(t *testing.T) {
	bus := &hazardBus{hold: 500 * time.Microsecond}
	l := New(bus)
	fillConcurrently(6, 8, func(w int) {
		x, y, cw, ch, ok := clip(w*20, 0, 16, 16, l.Width(), l.Height())
		if ok {
			// transfer without mu
			l.transfer(x, y, cw, ch, Color(0x1111*uint16(w+1)))
		}
	})
	if m := bus.max.Load(); m < 2 {
		t.Errorf("max concurrent transfers = %d, want overlap", m)
	}
	if bus.corrupted.Load() == 0 {
		t.Error("unlocked transfers should corrupt the shared buffer")
	}
}

func TestFullScreenFillBudget(t *testing.T) {
	l := New(NewFrameBus())
	start := time.Now()
	if err := l.FillScreen(Magenta); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(start); d > 50*time.Millisecond {
		t.Errorf("full screen fill took %v", d)
	}
}
