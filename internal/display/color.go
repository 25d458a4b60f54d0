package display

import "image/color"

// Color is a packed RGB565 value. It implements color.Color.
type Color uint16

const (
	Black   Color = 0x0000
	Blue    Color = 0x001F
	Red     Color = 0xF800
	Green   Color = 0x07E0
	Cyan    Color = 0x07FF
	Magenta Color = 0xF81F
	Yellow  Color = 0xFFE0
	White   Color = 0xFFFF
)

// RGB packs 8-bit channels into RGB565.
func RGB(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// Bytes returns the color as transmitted: high byte first.
func (c Color) Bytes() (hi, lo byte) { return byte(c >> 8), byte(c) }

func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1f
	g6 := uint32(c>>5) & 0x3f
	b5 := uint32(c) & 0x1f
	// Replicate the top bits into the low bits so full scale maps to 0xffff.
	r = (r5<<11 | r5<<6 | r5<<1 | r5>>4)
	g = (g6<<10 | g6<<4 | g6>>2)
	b = (b5<<11 | b5<<6 | b5<<1 | b5>>4)
	return r, g, b, 0xffff
}

// Model converts any color to RGB565.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if rc, ok := c.(Color); ok {
		return rc
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
})
