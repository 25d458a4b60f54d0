package display

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// LCD is one panel. Drawing methods may be called from several goroutines.
type LCD struct {
	bus   Bus
	sleep func(time.Duration)

	// mu serializes transfers: it guards buf and the window/RAMWR sequence
	// on the bus.
	mu  sync.Mutex
	buf [BufferPixels * 2]byte

	dims     atomic.Uint32 // width<<16 | height
	rotation atomic.Uint32

	text textState
}

type Option func(*LCD)

// WithSleep replaces time.Sleep for the reset delays of Begin.
func WithSleep(fn func(time.Duration)) Option {
	return func(l *LCD) { l.sleep = fn }
}

// WithRotation sets the rotation Begin programs.
func WithRotation(r uint8) Option {
	return func(l *LCD) { l.setRotation(r) }
}

func New(bus Bus, opts ...Option) *LCD {
	l := &LCD{bus: bus, sleep: time.Sleep}
	l.setRotation(DefaultRotation)
	l.text.color = White
	l.text.size = 1
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LCD) Width() int  { return int(l.dims.Load() >> 16) }
func (l *LCD) Height() int { return int(l.dims.Load() & 0xffff) }

func (l *LCD) Rotation() uint8 { return uint8(l.rotation.Load()) }

// Begin resets the controller and programs 16-bit color, the rotation and
// normal display mode, then turns the panel on.
func (l *LCD) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.bus.(Resetter); ok {
		if err := r.Reset(); err != nil {
			return fmt.Errorf("lcd reset: %w", err)
		}
	}
	steps := []struct {
		cmd   byte
		data  []byte
		delay time.Duration
	}{
		{CmdSWRESET, nil, 120 * time.Millisecond},
		{CmdSLPOUT, nil, 120 * time.Millisecond},
		{CmdCOLMOD, []byte{ColorMode16}, 10 * time.Millisecond},
		{CmdMADCTL, []byte{madctl(l.Rotation())}, 0},
		{CmdNORON, nil, 10 * time.Millisecond},
		{CmdDISPON, nil, 20 * time.Millisecond},
	}
	for _, s := range steps {
		if err := l.write(s.cmd, s.data); err != nil {
			return fmt.Errorf("lcd init 0x%02x: %w", s.cmd, err)
		}
		if s.delay > 0 {
			l.sleep(s.delay)
		}
	}
	return nil
}

func (l *LCD) DisplayOn() error  { return l.command(CmdDISPON, nil) }
func (l *LCD) DisplayOff() error { return l.command(CmdDISPOFF, nil) }

// SetBacklight sets the backlight level if the bus supports it.
func (l *LCD) SetBacklight(level uint8) error {
	if b, ok := l.bus.(Backlighter); ok {
		return b.SetBacklight(level)
	}
	return nil
}

// SetRotation selects one of four orientations (r mod 4). Odd rotations are
// landscape.
func (l *LCD) SetRotation(r uint8) error {
	l.setRotation(r)
	return l.command(CmdMADCTL, []byte{madctl(l.Rotation())})
}

func (l *LCD) setRotation(r uint8) {
	r %= 4
	l.rotation.Store(uint32(r))
	if r%2 == 1 {
		l.dims.Store(Width<<16 | Height)
	} else {
		l.dims.Store(Height<<16 | Width)
	}
}

func madctl(r uint8) byte {
	switch r % 4 {
	case 1:
		return MadctlMV | MadctlMX | MadctlBGR
	case 2:
		return MadctlMX | MadctlMY | MadctlBGR
	case 3:
		return MadctlMV | MadctlMY | MadctlBGR
	default:
		return MadctlBGR
	}
}

func (l *LCD) FillScreen(c Color) error { return l.FillRect(0, 0, l.Width(), l.Height(), c) }

func (l *LCD) DrawPixel(x, y int, c Color) error { return l.FillRect(x, y, 1, 1, c) }

func (l *LCD) DrawFastHLine(x, y, w int, c Color) error { return l.FillRect(x, y, w, 1, c) }

func (l *LCD) DrawFastVLine(x, y, h int, c Color) error { return l.FillRect(x, y, 1, h, c) }

// DrawRect outlines a rectangle one pixel wide.
func (l *LCD) DrawRect(x, y, w, h int, c Color) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	for _, err := range []error{
		l.DrawFastHLine(x, y, w, c),
		l.DrawFastHLine(x, y+h-1, w, c),
		l.DrawFastVLine(x, y, h, c),
		l.DrawFastVLine(x+w-1, y, h, c),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// FillRect fills a rectangle, clipped to the panel. Rectangles that clip to
// nothing return immediately without touching the bus or the lock.
func (l *LCD) FillRect(x, y, w, h int, c Color) error {
	x, y, w, h, ok := clip(x, y, w, h, l.Width(), l.Height())
	if !ok {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(x, y, w, h, c)
}

func clip(x, y, w, h, maxW, maxH int) (int, int, int, int, bool) {
	if w <= 0 || h <= 0 {
		return x, y, w, h, false
	}
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	w = min(w, maxW-x)
	h = min(h, maxH-y)
	return x, y, w, h, w > 0 && h > 0
}

// transfer writes an already clipped rectangle. The caller holds mu.
func (l *LCD) transfer(x, y, w, h int, c Color) error {
	if err := l.setWindow(x, y, w, h); err != nil {
		return err
	}
	pixels := w * h
	n := min(pixels, BufferPixels)
	hi, lo := c.Bytes()
	for i := 0; i < n*2; i += 2 {
		l.buf[i] = hi
		l.buf[i+1] = lo
	}
	for pixels > 0 {
		batch := min(pixels, BufferPixels)
		if err := l.bus.Data(l.buf[:batch*2]); err != nil {
			return fmt.Errorf("lcd pixel data: %w", err)
		}
		pixels -= batch
	}
	return nil
}

func (l *LCD) setWindow(x, y, w, h int) error {
	x1, y1 := x+w-1, y+h-1
	if err := l.write(CmdCASET, []byte{byte(x >> 8), byte(x), byte(x1 >> 8), byte(x1)}); err != nil {
		return err
	}
	if err := l.write(CmdRASET, []byte{byte(y >> 8), byte(y), byte(y1 >> 8), byte(y1)}); err != nil {
		return err
	}
	return l.write(CmdRAMWR, nil)
}

// command sends a command outside of a fill, taking the lock.
func (l *LCD) command(c byte, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(c, data)
}

func (l *LCD) write(c byte, data []byte) error {
	if err := l.bus.Command(c); err != nil {
		return fmt.Errorf("lcd command 0x%02x: %w", c, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := l.bus.Data(data); err != nil {
		return fmt.Errorf("lcd command 0x%02x data: %w", c, err)
	}
	return nil
}
