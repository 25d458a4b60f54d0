package display

import (
	"sync"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// Glyph cell in unscaled pixels.
const (
	CharWidth  = 7
	CharHeight = 13
)

type textState struct {
	mu         sync.Mutex
	x, y       int
	color      Color
	background Color
	opaque     bool
	size       int
	wrap       bool
}

func (l *LCD) SetCursor(x, y int) {
	l.text.mu.Lock()
	l.text.x, l.text.y = x, y
	l.text.mu.Unlock()
}

func (l *LCD) Cursor() (x, y int) {
	l.text.mu.Lock()
	defer l.text.mu.Unlock()
	return l.text.x, l.text.y
}

// SetTextColor sets the glyph color; the background is left untouched.
func (l *LCD) SetTextColor(c Color) {
	l.text.mu.Lock()
	l.text.color, l.text.opaque = c, false
	l.text.mu.Unlock()
}

// SetTextColors sets glyph and background colors; each glyph cell is cleared
// to bg before drawing.
func (l *LCD) SetTextColors(fg, bg Color) {
	l.text.mu.Lock()
	l.text.color, l.text.background, l.text.opaque = fg, bg, true
	l.text.mu.Unlock()
}

// SetTextSize sets the integer pixel scale, at least 1.
func (l *LCD) SetTextSize(s int) {
	l.text.mu.Lock()
	l.text.size = max(s, 1)
	l.text.mu.Unlock()
}

// SetTextWrap makes Print continue on the next line at the right edge.
func (l *LCD) SetTextWrap(on bool) {
	l.text.mu.Lock()
	l.text.wrap = on
	l.text.mu.Unlock()
}

// Print draws s at the cursor and advances it. '\n' moves to the start of the
// next line; runes the font lacks are drawn as '?'.
func (l *LCD) Print(s string) error {
	l.text.mu.Lock()
	defer l.text.mu.Unlock()
	t := &l.text
	cw, ch := CharWidth*t.size, CharHeight*t.size
	for _, r := range s {
		if r == '\n' {
			t.x, t.y = 0, t.y+ch
			continue
		}
		if r == '\r' {
			continue
		}
		if t.wrap && t.x+cw > l.Width() {
			t.x, t.y = 0, t.y+ch
		}
		if err := l.drawGlyph(t.x, t.y, r, t); err != nil {
			return err
		}
		t.x += cw
	}
	return nil
}

func (l *LCD) Println(s string) error { return l.Print(s + "\n") }

// drawGlyph renders one glyph cell as horizontal runs. The caller holds
// text.mu.
func (l *LCD) drawGlyph(x, y int, r rune, t *textState) error {
	sz := t.size
	if t.opaque {
		if err := l.FillRect(x, y, CharWidth*sz, CharHeight*sz, t.background); err != nil {
			return err
		}
	}
	dr, mask, mp, _, ok := face.Glyph(fixed.P(0, face.Ascent), r)
	if !ok {
		dr, mask, mp, _, _ = face.Glyph(fixed.P(0, face.Ascent), '?')
	}
	for gy := 0; gy < dr.Dy(); gy++ {
		run := -1
		for gx := 0; gx <= dr.Dx(); gx++ {
			on := false
			if gx < dr.Dx() {
				_, _, _, a := mask.At(mp.X+gx, mp.Y+gy).RGBA()
				on = a > 0x7fff
			}
			switch {
			case on && run < 0:
				run = gx
			case !on && run >= 0:
				px := x + (dr.Min.X+run)*sz
				py := y + (dr.Min.Y+gy)*sz
				if err := l.FillRect(px, py, (gx-run)*sz, sz, t.color); err != nil {
					return err
				}
				run = -1
			}
		}
	}
	return nil
}
