package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/acidbox-go"
	"github.com/cbegin/acidbox-go/internal/control"
	"github.com/cbegin/acidbox-go/internal/display"
	"github.com/cbegin/acidbox-go/internal/panel"
)

const (
	lcdScale     = 2
	eqH          = 120
	helpH        = 40
	windowW      = display.Width * lcdScale
	windowH      = display.Height*lcdScale + eqH + helpH
	uiSampleRate = 48000
	synthCh      = 0
	drumCh       = 9
)

var (
	bgColor     = color.RGBA{192, 192, 192, 255}
	borderColor = color.RGBA{128, 128, 128, 255}
	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}
	knobColor   = color.RGBA{192, 192, 192, 255}

	eqBandLabels = [5]string{"<120", "500", "2k", "6k", ">6k"}
)

// Piano keys on the home row, one octave from C.
var pianoKeys = []ebiten.Key{
	ebiten.KeyA, ebiten.KeyW, ebiten.KeyS, ebiten.KeyE, ebiten.KeyD, ebiten.KeyF,
	ebiten.KeyT, ebiten.KeyG, ebiten.KeyY, ebiten.KeyH, ebiten.KeyU, ebiten.KeyJ, ebiten.KeyK,
}

// Drum pads on the number row, one per slot.
var padKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8,
	ebiten.KeyDigit9, ebiten.KeyDigit0, ebiten.KeyMinus, ebiten.KeyEqual,
}

// knobKeys step a controller up or down.
var knobKeys = []struct {
	up, down ebiten.Key
	cc       uint8
}{
	{ebiten.KeyArrowUp, ebiten.KeyArrowDown, control.CCCutoff},
	{ebiten.KeyArrowRight, ebiten.KeyArrowLeft, control.CCResonance},
	{ebiten.KeyPageUp, ebiten.KeyPageDown, control.CCEnvMod},
	{ebiten.KeyBracketRight, ebiten.KeyBracketLeft, control.CCDistortion},
}

type game struct {
	player *acidbox.Player
	lcd    *display.FrameBus
	panel  *panel.Panel
	screen *ebiten.Image
	file   string

	octave  int
	slide   bool
	knobs   map[uint8]int
	held    map[ebiten.Key]uint8
	eqGains [5]float64

	draggingEQ int
	status     string
	textCache  map[string]*ebiten.Image
}

func newGame(file string) (*game, error) {
	bus := display.NewFrameBus()
	lcd := display.New(bus)
	if err := lcd.Begin(); err != nil {
		return nil, err
	}
	pl, err := acidbox.NewPlayer(uiSampleRate, acidbox.WithEngineOptions(acidbox.WithDisplay(lcd)))
	if err != nil {
		return nil, err
	}
	g := &game{
		player:     pl,
		lcd:        bus,
		panel:      panel.New(pl.Engine().Display(), pl.Engine()),
		screen:     ebiten.NewImage(display.Width, display.Height),
		file:       file,
		octave:     3,
		knobs:      map[uint8]int{control.CCCutoff: 64, control.CCResonance: 0, control.CCEnvMod: 0, control.CCDistortion: 0},
		held:       make(map[ebiten.Key]uint8),
		eqGains:    [5]float64{1, 1, 1, 1, 1},
		draggingEQ: -1,
		status:     "Ready",
		textCache:  make(map[string]*ebiten.Image, 64),
	}
	for cc, v := range g.knobs {
		g.send(midi.ControlChange(synthCh, cc, uint8(v)))
	}
	if err := pl.Start(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *game) send(msg midi.Message) { g.player.HandleMIDI(msg) }

func (g *game) Update() error {
	g.handleKeys()
	g.handleMouse()
	return g.panel.Refresh()
}

func (g *game) handleKeys() {
	for i, k := range pianoKeys {
		if inpututil.IsKeyJustPressed(k) {
			n := uint8(12*(g.octave+1) + i)
			g.held[k] = n
			g.send(midi.NoteOn(synthCh, n, 100))
		}
		if inpututil.IsKeyJustReleased(k) {
			if n, ok := g.held[k]; ok {
				g.send(midi.NoteOff(synthCh, n))
				delete(g.held, k)
			}
		}
	}
	for i, k := range padKeys {
		if inpututil.IsKeyJustPressed(k) {
			vel := uint8(100)
			if ebiten.IsKeyPressed(ebiten.KeyShift) {
				vel = 127
			}
			g.send(midi.NoteOn(drumCh, uint8(36+i), vel))
		}
	}
	for _, kk := range knobKeys {
		step := 0
		if inpututil.IsKeyJustPressed(kk.up) || inpututil.KeyPressDuration(kk.up) > 20 {
			step = 2
		}
		if inpututil.IsKeyJustPressed(kk.down) || inpututil.KeyPressDuration(kk.down) > 20 {
			step = -2
		}
		if step != 0 {
			v := int(clamp(float64(g.knobs[kk.cc]+step), 0, 127))
			g.knobs[kk.cc] = v
			g.send(midi.ControlChange(synthCh, kk.cc, uint8(v)))
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyZ):
		g.octave = max(0, g.octave-1)
		g.setStatus(fmt.Sprintf("Octave %d", g.octave))
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		g.octave = min(7, g.octave+1)
		g.setStatus(fmt.Sprintf("Octave %d", g.octave))
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.slide = !g.slide
		v := uint8(0)
		if g.slide {
			v = 127
		}
		g.send(midi.ControlChange(synthCh, control.CCSlide, v))
		g.setStatus(fmt.Sprintf("Slide %v", g.slide))
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.send(midi.ControlChange(synthCh, control.CCAllSoundOff, 0))
		g.setStatus("All sound off")
	case inpututil.IsKeyJustPressed(ebiten.KeyP) && g.file != "":
		if err := g.player.PlayFile(g.file); err != nil {
			g.setStatus(err.Error())
		} else {
			g.setStatus("Playing " + g.file)
		}
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	rect := eqRect()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && image.Pt(mx, my).In(rect) {
		g.draggingEQ = g.eqBandFromMouse(mx, rect)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.draggingEQ = -1
	}
	if g.draggingEQ >= 0 && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragEQ(my, rect)
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	g.screen.WritePixels(g.lcd.Snapshot().Pix)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(lcdScale, lcdScale)
	screen.DrawImage(g.screen, op)

	rect := eqRect()
	drawBorder(screen, rect)
	g.drawEQ(screen, rect)
	g.drawText(screen, "A-K play  Z/X octave  1-= pads  arrows/PgUp/[ ] knobs  space slide  P file  Esc stop", 8, windowH-helpH+4)
	g.drawText(screen, g.status, 8, windowH-helpH+22)
}

func (g *game) Layout(int, int) (int, int) { return windowW, windowH }

func (g *game) Close() { _ = g.player.Stop() }

func eqRect() image.Rectangle {
	top := display.Height * lcdScale
	return image.Rect(0, top, windowW, top+eqH)
}

func (g *game) drawEQ(screen *ebiten.Image, rect image.Rectangle) {
	const pad = 8
	innerX := rect.Min.X + pad
	innerW := rect.Dx() - pad*2
	innerY := rect.Min.Y + pad
	innerH := rect.Dy() - pad*2 - 14
	bandW := innerW / len(g.eqGains)
	for i := range g.eqGains {
		bx := innerX + i*bandW
		bw := bandW - 4
		ebitenutil.DrawRect(screen, float64(bx+bw/2-2), float64(innerY), 4, float64(innerH), bevelDarker)
		centerY := innerY + innerH/2
		ebitenutil.DrawRect(screen, float64(bx), float64(centerY), float64(bw), 1, borderColor)
		frac := clamp(g.eqGains[i]/2, 0, 1)
		knobY := innerY + innerH - int(frac*float64(innerH)) - 4
		knob := image.Rect(bx+bw/2-20, knobY, bx+bw/2+20, knobY+8)
		ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), knobColor)
		drawBorder(screen, knob)
		g.drawText(screen, eqBandLabels[i], bx+bw/2-14, innerY+innerH+2)
	}
}

func (g *game) dragEQ(my int, rect image.Rectangle) {
	const pad = 8
	innerY := rect.Min.Y + pad
	innerH := rect.Dy() - pad*2 - 14
	// Top is 2.0, bottom is 0.0.
	gain := (1 - clamp(float64(my-innerY)/float64(innerH), 0, 1)) * 2
	g.eqGains[g.draggingEQ] = gain
	g.player.SetEQBand(g.draggingEQ, float32(gain))
	g.setStatus(fmt.Sprintf("EQ %s: %.1f", eqBandLabels[g.draggingEQ], gain))
}

func (g *game) eqBandFromMouse(mx int, rect image.Rectangle) int {
	const pad = 8
	bandW := (rect.Dx() - pad*2) / len(g.eqGains)
	idx := (mx - rect.Min.X - pad) / bandW
	if idx < 0 || idx >= len(g.eqGains) {
		return -1
	}
	return idx
}

func (g *game) setStatus(msg string) {
	g.status = msg
	slog.Debug("status", "msg", msg)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 256 {
			g.textCache = make(map[string]*ebiten.Image, 64)
		}
		g.textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, op)
}

func clamp(v, minV, maxV float64) float64 {
	return max(minV, min(v, maxV))
}

func main() {
	file := flag.String("file", "", "Standard MIDI File played with P")
	flag.Parse()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	g, err := newGame(*file)
	if err != nil {
		slog.Error("start", "err", err)
		os.Exit(1)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("acidbox")
	if err := ebiten.RunGame(g); err != nil {
		slog.Error("run", "err", err)
		os.Exit(1)
	}
}
