package display

import (
	"image"
	"image/color"
	"sync"
)

// FrameBus is an in-memory controller. It decodes the window and memory
// write commands into an image so drawing can be inspected without hardware.
type FrameBus struct {
	mu    sync.Mutex
	img   *image.RGBA
	cmd   byte
	param []byte

	x0, x1, y0, y1 int
	cx, cy         int
	half           int // pending high byte, or -1
	madctl         byte
	colmod         byte
	on             bool

	commands int
	bytes    int
}

// NewFrameBus returns a bus backed by a landscape panel image.
func NewFrameBus() *FrameBus {
	return &FrameBus{
		img:  image.NewRGBA(image.Rect(0, 0, Width, Height)),
		half: -1,
	}
}

func (b *FrameBus) Command(c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands++
	b.cmd = c
	b.param = b.param[:0]
	b.half = -1
	switch c {
	case CmdRAMWR:
		b.cx, b.cy = b.x0, b.y0
	case CmdDISPON:
		b.on = true
	case CmdDISPOFF:
		b.on = false
	case CmdSWRESET:
		b.madctl, b.colmod, b.on = 0, 0, false
	}
	return nil
}

func (b *FrameBus) Data(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bytes += len(p)
	if len(p) == 0 {
		return nil
	}
	switch b.cmd {
	case CmdRAMWR:
		b.pixels(p)
		return nil
	case CmdCASET, CmdRASET:
		b.param = append(b.param, p...)
		if len(b.param) < 4 {
			return nil
		}
		lo := int(b.param[0])<<8 | int(b.param[1])
		hi := int(b.param[2])<<8 | int(b.param[3])
		if b.cmd == CmdCASET {
			b.x0, b.x1 = lo, hi
		} else {
			b.y0, b.y1 = lo, hi
		}
	case CmdMADCTL:
		b.madctl = p[len(p)-1]
	case CmdCOLMOD:
		b.colmod = p[len(p)-1]
	}
	return nil
}

// pixels writes RGB565 words into the current window, row by row. A high
// byte split across calls is carried over.
func (b *FrameBus) pixels(p []byte) {
	for _, v := range p {
		if b.half < 0 {
			b.half = int(v)
			continue
		}
		c := Color(uint16(b.half)<<8 | uint16(v))
		b.half = -1
		if b.cy > b.y1 {
			continue
		}
		if image.Pt(b.cx, b.cy).In(b.img.Rect) {
			r, g, bl, _ := c.RGBA()
			px := b.img.Pix[b.img.PixOffset(b.cx, b.cy):]
			px[0], px[1], px[2], px[3] = uint8(r>>8), uint8(g>>8), uint8(bl>>8), 0xff
		}
		b.cx++
		if b.cx > b.x1 {
			b.cx = b.x0
			b.cy++
		}
	}
}

// Snapshot copies the current panel image.
func (b *FrameBus) Snapshot() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := image.NewRGBA(b.img.Rect)
	copy(out.Pix, b.img.Pix)
	return out
}

// Pixel returns the panel color at (x, y) converted back to RGB565.
func (b *FrameBus) Pixel(x, y int) Color {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Model.Convert(b.img.At(x, y)).(Color)
}

// FrameBus is also an image.Image of the panel.
func (b *FrameBus) Bounds() image.Rectangle { return b.img.Rect }
func (b *FrameBus) ColorModel() color.Model { return Model }
func (b *FrameBus) At(x, y int) color.Color { return b.Pixel(x, y) }

// Counters reports how many commands and data bytes have been received.
func (b *FrameBus) Counters() (commands, bytes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commands, b.bytes
}

// ResetCounters zeroes the counters.
func (b *FrameBus) ResetCounters() {
	b.mu.Lock()
	b.commands, b.bytes = 0, 0
	b.mu.Unlock()
}

// State reports the last MADCTL and COLMOD values and whether the panel is on.
func (b *FrameBus) State() (madctl, colmod byte, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.madctl, b.colmod, b.on
}
