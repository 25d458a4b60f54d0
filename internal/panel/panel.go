// Package panel draws the instrument status screen: parameter bars for the
// voice and mixer, one light per drum slot, output meters and a spectrum of
// the most recent output. Only elements whose value changed since the last
// refresh are redrawn.
package panel

import (
	"context"
	"math"
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/fft"

	"github.com/cbegin/acidbox-go/internal/audio"
	"github.com/cbegin/acidbox-go/internal/display"
	"github.com/cbegin/acidbox-go/internal/effects"
	"github.com/cbegin/acidbox-go/internal/sampler"
	"github.com/cbegin/acidbox-go/internal/voice"
)

// Instrument is what the panel reads. *acidbox.Engine implements it.
type Instrument interface {
	Voice() *voice.Voice
	Drums() *sampler.Sampler
	Limiter() *effects.Limiter
	Monitor() *audio.Monitor
	MasterVolume() float64
	DistortionMidi() uint8
	OverdriveMidi() uint8
	SynthReverbSend() uint8
	SynthDelaySend() uint8
}

// Layout.
const (
	rowTop     = 18
	rowPitch   = 16
	labelX     = 4
	barX       = 30
	barW       = 136
	barH       = 10
	padX       = 174
	padTop     = 18
	padPitch   = 36
	padSize    = 32
	padsPerRow = 4
	meterX     = 200
	meterW     = 110
	specTop    = 196
	specH      = 40
	specX      = 16
	specBars   = 48
	specBarW   = 6
	fftSize    = 256
	floorDB    = -60.0
)

// Colors.
var (
	Background = display.Black
	Foreground = display.White
	BarColor   = display.RGB(0, 200, 120)
	DriveColor = display.RGB(255, 120, 0)
	PadLoaded  = display.RGB(60, 60, 60)
	PadActive  = display.Yellow
	MeterColor = display.Cyan
	GRColor    = display.Red
	SpecColor  = display.Magenta
)

type bar struct {
	label string
	color display.Color
	value func(Instrument) float64
}

var bars = []bar{
	{"CUT", BarColor, func(in Instrument) float64 {
		return math.Log(in.Voice().Cutoff()/voice.CutoffFromMidi(0)) /
			math.Log(voice.CutoffFromMidi(127)/voice.CutoffFromMidi(0))
	}},
	{"RES", BarColor, func(in Instrument) float64 { return in.Voice().Resonance() }},
	{"ENV", BarColor, func(in Instrument) float64 { return in.Voice().EnvMod() }},
	{"ACC", BarColor, func(in Instrument) float64 { return in.Voice().Accent() }},
	{"ATK", BarColor, func(in Instrument) float64 { return math.Sqrt(in.Voice().Attack() / 2) }},
	{"DEC", BarColor, func(in Instrument) float64 {
		d := in.Voice().Decay()
		if math.IsInf(d, 1) {
			return 1
		}
		return math.Sqrt(d / 4)
	}},
	{"VOL", BarColor, func(in Instrument) float64 { return in.Voice().Volume() }},
	{"DST", DriveColor, func(in Instrument) float64 { return float64(in.DistortionMidi()) / 127 }},
	{"OVD", DriveColor, func(in Instrument) float64 { return float64(in.OverdriveMidi()) / 127 }},
	{"REV", BarColor, func(in Instrument) float64 { return float64(in.SynthReverbSend()) / 127 }},
	{"DLY", BarColor, func(in Instrument) float64 { return float64(in.SynthDelaySend()) / 127 }},
}

// Panel renders one Instrument onto one LCD. It is not safe for concurrent
// use; run Refresh from a single goroutine.
type Panel struct {
	lcd *display.LCD
	in  Instrument

	drawn    bool
	barPx    []int
	pads     [sampler.SlotCount]display.Color
	meters   [3]int
	spectrum [specBars]int

	window  []float64
	samples []float32
}

func New(lcd *display.LCD, in Instrument) *Panel {
	p := &Panel{
		lcd:     lcd,
		in:      in,
		barPx:   make([]int, len(bars)),
		window:  make([]float64, fftSize),
		samples: make([]float32, fftSize),
	}
	// Hann window.
	for i := range p.window {
		p.window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}
	return p
}

// Invalidate forces the next Refresh to redraw the whole screen.
func (p *Panel) Invalidate() { p.drawn = false }

// Refresh brings the screen up to date with the instrument.
func (p *Panel) Refresh() error {
	if !p.drawn {
		if err := p.drawStatic(); err != nil {
			return err
		}
		p.drawn = true
	}
	if err := p.drawBars(); err != nil {
		return err
	}
	if err := p.drawPads(); err != nil {
		return err
	}
	if err := p.drawMeters(); err != nil {
		return err
	}
	return p.drawSpectrum()
}

// Run refreshes every interval until ctx is done.
func (p *Panel) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := p.Refresh(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *Panel) drawStatic() error {
	l := p.lcd
	if err := l.FillScreen(Background); err != nil {
		return err
	}
	l.SetTextSize(1)
	l.SetTextColors(Foreground, Background)
	l.SetCursor(labelX, 2)
	v := p.in.Voice()
	if err := l.Print("ACIDBOX " + v.FilterKind().String() + " " + v.Waveform().String()); err != nil {
		return err
	}
	for i, b := range bars {
		y := rowTop + i*rowPitch
		l.SetCursor(labelX, y)
		if err := l.Print(b.label); err != nil {
			return err
		}
		if err := l.DrawRect(barX-1, y+1, barW+2, barH+2, Foreground); err != nil {
			return err
		}
		p.barPx[i] = -1
	}
	for i, label := range []string{"PK", "GR", "MST"} {
		l.SetCursor(padX, meterY(i))
		if err := l.Print(label); err != nil {
			return err
		}
		if err := l.DrawRect(meterX-1, meterY(i)+1, meterW+2, barH+2, Foreground); err != nil {
			return err
		}
		p.meters[i] = -1
	}
	for i := range p.pads {
		p.pads[i] = Foreground // never a pad color, forces a draw
	}
	for i := range p.spectrum {
		p.spectrum[i] = -1
	}
	return nil
}

func meterY(i int) int { return padTop + 3*padPitch + 4 + i*rowPitch }

func (p *Panel) drawBars() error {
	for i, b := range bars {
		px := int(math.Round(unit(b.value(p.in)) * barW))
		if px == p.barPx[i] {
			continue
		}
		if err := p.level(barX, rowTop+i*rowPitch+2, barW, px, b.color); err != nil {
			return err
		}
		p.barPx[i] = px
	}
	return nil
}

// level draws a horizontal gauge filled to px.
func (p *Panel) level(x, y, w, px int, c display.Color) error {
	if err := p.lcd.FillRect(x, y, px, barH, c); err != nil {
		return err
	}
	return p.lcd.FillRect(x+px, y, w-px, barH, Background)
}

func (p *Panel) drawPads() error {
	drums := p.in.Drums()
	for i := range p.pads {
		c := Background
		switch {
		case drums.IsSampleActive(uint8(i)):
			c = PadActive
		case drums.Loaded(uint8(i)):
			c = PadLoaded
		}
		if c == p.pads[i] {
			continue
		}
		x := padX + (i%padsPerRow)*padPitch
		y := padTop + (i/padsPerRow)*padPitch
		if err := p.lcd.FillRect(x, y, padSize, padSize, c); err != nil {
			return err
		}
		if err := p.lcd.DrawRect(x, y, padSize, padSize, Foreground); err != nil {
			return err
		}
		p.pads[i] = c
	}
	return nil
}

func (p *Panel) drawMeters() error {
	vals := [3]float64{
		float64(p.in.Monitor().Peak()),
		1 - float64(p.in.Limiter().GainReduction()),
		p.in.MasterVolume() / 2,
	}
	colors := [3]display.Color{MeterColor, GRColor, BarColor}
	for i, v := range vals {
		px := int(math.Round(unit(v) * meterW))
		if px == p.meters[i] {
			continue
		}
		if err := p.level(meterX, meterY(i)+2, meterW, px, colors[i]); err != nil {
			return err
		}
		p.meters[i] = px
	}
	return nil
}

// Spectrum returns the magnitude of the latest output in dB relative to full
// scale, one value per display bar, each clamped to [floorDB, 0].
func (p *Panel) Spectrum() []float64 {
	n := p.in.Monitor().Snapshot(p.samples)
	x := make([]float64, fftSize)
	for i := range n {
		x[i] = float64(p.samples[i]) * p.window[i]
	}
	spec := fft.FFTReal(x)
	per := (fftSize / 2) / specBars
	out := make([]float64, specBars)
	for b := range out {
		var m float64
		for k := b * per; k < (b+1)*per; k++ {
			m = max(m, cmplx.Abs(spec[k+1]))
		}
		// A full-scale sine through the Hann window peaks at N/4.
		db := 20 * math.Log10(m/(fftSize/4)+1e-12)
		out[b] = max(floorDB, min(0, db))
	}
	return out
}

func (p *Panel) drawSpectrum() error {
	for i, db := range p.Spectrum() {
		h := int(math.Round((db - floorDB) / -floorDB * specH))
		if h == p.spectrum[i] {
			continue
		}
		x := specX + i*specBarW
		if err := p.lcd.FillRect(x, specTop, specBarW-1, specH-h, Background); err != nil {
			return err
		}
		if err := p.lcd.FillRect(x, specTop+specH-h, specBarW-1, h, SpecColor); err != nil {
			return err
		}
		p.spectrum[i] = h
	}
	return nil
}

func unit(v float64) float64 {
	if v != v {
		return 0
	}
	return max(0, min(v, 1))
}
