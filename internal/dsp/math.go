package dsp

import "math"

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CCToUnit maps a 7-bit controller value onto [0, 1].
func CCToUnit(v uint8) float64 {
	if v > 127 {
		v = 127
	}
	return float64(v) / 127.0
}

// FastTanh is a Pade approximation of tanh that saturates to +/-1 past |x| = 3.
func FastTanh(x float32) float32 {
	if x > 3 {
		return 1
	}
	if x < -3 {
		return -1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
