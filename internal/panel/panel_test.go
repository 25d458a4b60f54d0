package panel

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	acidbox "github.com/cbegin/acidbox-go"
	"github.com/cbegin/acidbox-go/internal/display"
)

func newPanel(t *testing.T) (*Panel, *display.FrameBus, *acidbox.Engine) {
	t.Helper()
	e, err := acidbox.NewEngine(44100)
	if err != nil {
		t.Fatal(err)
	}
	bus := display.NewFrameBus()
	p := New(display.New(bus), e)
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	return p, bus, e
}

func padCenter(i int) (int, int) {
	return padX + (i%padsPerRow)*padPitch + padSize/2, padTop + (i/padsPerRow)*padPitch + padSize/2
}

func barPixel(bus *display.FrameBus, row, x int) display.Color {
	return bus.Pixel(barX+x, rowTop+row*rowPitch+2+barH/2)
}

func TestRefreshDrawsLayout(t *testing.T) {
	_, bus, _ := newPanel(t)
	if got := bus.Pixel(padCenter(0)); got != PadLoaded {
		t.Errorf("kick pad = %#04x, want loaded", got)
	}
	// Volume defaults to full scale.
	if got := barPixel(bus, 6, barW-1); got != BarColor {
		t.Errorf("volume bar end = %#04x", got)
	}
	// Resonance defaults to zero.
	if got := barPixel(bus, 1, 0); got != Background {
		t.Errorf("resonance bar start = %#04x", got)
	}
	if got := bus.Pixel(barX-1, rowTop+1); got != Foreground {
		t.Errorf("bar outline = %#04x", got)
	}
}

func TestRefreshIsIncremental(t *testing.T) {
	p, bus, _ := newPanel(t)
	bus.ResetCounters()
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	if cmds, n := bus.Counters(); cmds != 0 || n != 0 {
		t.Errorf("unchanged refresh sent %d commands, %d bytes", cmds, n)
	}
	p.Invalidate()
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	if _, n := bus.Counters(); n < display.Width*display.Height*2 {
		t.Errorf("full redraw sent only %d bytes", n)
	}
}

func TestRefreshTracksInstrument(t *testing.T) {
	p, bus, e := newPanel(t)
	e.HandleMIDI(midi.NoteOn(9, 38, 127))
	e.HandleMIDI(midi.ControlChange(0, 74, 127))
	e.HandleMIDI(midi.ControlChange(0, 94, 127))
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	if got := bus.Pixel(padCenter(2)); got != PadActive {
		t.Errorf("snare pad = %#04x, want active", got)
	}
	if got := barPixel(bus, 0, barW-1); got != BarColor {
		t.Errorf("cutoff bar end = %#04x", got)
	}
	if got := barPixel(bus, 7, barW-1); got != DriveColor {
		t.Errorf("distortion bar end = %#04x", got)
	}

	e.HandleMIDI(midi.ControlChange(0, 74, 0))
	e.HandleMIDI(midi.NoteOff(9, 38))
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	if got := barPixel(bus, 0, 0); got != Background {
		t.Errorf("closed cutoff bar = %#04x", got)
	}
	if got := bus.Pixel(padCenter(2)); got != PadLoaded {
		t.Errorf("released pad = %#04x", got)
	}
}

func TestSpectrumPeak(t *testing.T) {
	p, _, e := newPanel(t)
	const bin = 41
	for i := range fftSize {
		v := float32(math.Sin(2 * math.Pi * bin * float64(i) / fftSize))
		e.Monitor().Write(v, v)
	}
	spec := p.Spectrum()
	if len(spec) != specBars {
		t.Fatalf("len = %d", len(spec))
	}
	peak := (bin - 1) / 2
	if spec[peak] < -3 {
		t.Errorf("peak bar %d = %.1f dB", peak, spec[peak])
	}
	for _, b := range []int{0, 5, 40} {
		if spec[b] > -40 {
			t.Errorf("bar %d = %.1f dB, want near the floor", b, spec[b])
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p, _, _ := newPanel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v", err)
	}
}

type brokenBus struct{}

var errBroken = errors.New("bus down")

func (brokenBus) Command(byte) error { return nil }
func (brokenBus) Data([]byte) error  { return errBroken }

func TestRefreshReportsBusErrors(t *testing.T) {
	e, err := acidbox.NewEngine(44100)
	if err != nil {
		t.Fatal(err)
	}
	p := New(display.New(brokenBus{}), e)
	if err := p.Refresh(); !errors.Is(err, errBroken) {
		t.Errorf("Refresh() = %v", err)
	}
}
