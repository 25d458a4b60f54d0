// Package display drives a 320x240 RGB565 LCD controller over a serial bus.
//
// The driver is an explicit handle: construct one LCD per panel and pass it
// to whoever draws. Bulk fills share one transfer buffer, so transfers are
// serialized by a mutex; clipping happens before the lock is taken.
package display

// Panel geometry in the default (landscape) rotation.
const (
	Width           = 320
	Height          = 240
	DefaultRotation = 1
)

// Pin assignments of the reference board. Bus implementations that drive GPIO
// directly use these; the driver itself does not.
const (
	PinSCK  = 7
	PinMOSI = 6
	PinCS   = 5
	PinDC   = 4
	PinRST  = 8
	PinBL   = 16
)

// SPISpeed is the default serial clock in Hz.
const SPISpeed = 8_000_000

// BufferPixels is the size of one batched transfer.
const BufferPixels = 512

// Controller commands.
const (
	CmdNOP     = 0x00
	CmdSWRESET = 0x01
	CmdRDDID   = 0x04
	CmdRDDST   = 0x09
	CmdSLPIN   = 0x10
	CmdSLPOUT  = 0x11
	CmdPTLON   = 0x12
	CmdNORON   = 0x13
	CmdINVOFF  = 0x20
	CmdINVON   = 0x21
	CmdDISPOFF = 0x28
	CmdDISPON  = 0x29
	CmdCASET   = 0x2A
	CmdRASET   = 0x2B
	CmdRAMWR   = 0x2C
	CmdRAMRD   = 0x2E
	CmdPTLAR   = 0x30
	CmdMADCTL  = 0x36
	CmdCOLMOD  = 0x3A
)

// MADCTL bits.
const (
	MadctlMY  = 0x80
	MadctlMX  = 0x40
	MadctlMV  = 0x20
	MadctlBGR = 0x08
)

// ColorMode16 selects 16 bits per pixel in COLMOD.
const ColorMode16 = 0x55

// Bus is the command/data link to the controller.
type Bus interface {
	Command(c byte) error
	Data(p []byte) error
}

// Resetter is implemented by buses that can pulse the reset line.
type Resetter interface {
	Reset() error
}

// Backlighter is implemented by buses that control the backlight.
type Backlighter interface {
	SetBacklight(level uint8) error
}
