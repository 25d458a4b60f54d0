package sampler

import (
	"math"
	"math/rand/v2"
)

// KitNames lists the built-in kit in slot order. Slot 0 takes C notes (36
// is the General MIDI kick), so the layout follows the GM drum map.
var KitNames = [SlotCount]string{
	"kick", "rim", "snare", "clap", "snare2", "tom-lo",
	"hat-closed", "tom-mid", "hat-pedal", "tom-hi", "hat-open", "cowbell",
}

// Kit synthesizes the built-in drum kit at sampleRate. The result is
// deterministic.
func Kit(sampleRate int) [SlotCount]*Sample {
	sr := float64(sampleRate)
	rng := rand.New(rand.NewPCG(0x5eed, 303))
	noise := func() float64 { return rng.Float64()*2 - 1 }

	var kit [SlotCount]*Sample
	kit[0] = render(sr, 0.45, func(t float64) float64 {
		// Pitch falls from 150 Hz to 45 Hz; cosine start gives the click.
		phase := 2 * math.Pi * (45*t + 105*(1-math.Exp(-t*30))/30)
		return math.Cos(phase) * math.Exp(-t*7)
	})
	kit[1] = render(sr, 0.05, func(t float64) float64 {
		return (0.6*math.Sin(2*math.Pi*1700*t) + 0.4*noise()) * math.Exp(-t*90)
	})
	kit[2] = snare(sr, 180, 0.25, noise)
	kit[3] = render(sr, 0.3, func(t float64) float64 {
		// Three quick bursts, then the tail.
		env := math.Exp(-math.Mod(t, 0.012) * 250)
		if t > 0.036 {
			env = 0.6 * math.Exp(-(t-0.036)*18)
		}
		return noise() * env
	})
	kit[4] = snare(sr, 220, 0.18, noise)
	kit[5] = tom(sr, 90)
	kit[6] = hat(sr, 0.06, noise)
	kit[7] = tom(sr, 130)
	kit[8] = hat(sr, 0.1, noise)
	kit[9] = tom(sr, 180)
	kit[10] = hat(sr, 0.45, noise)
	kit[11] = render(sr, 0.2, func(t float64) float64 {
		sq := func(f float64) float64 {
			if math.Mod(t*f, 1) < 0.5 {
				return 1
			}
			return -1
		}
		return 0.35 * (sq(540) + sq(800)) * math.Exp(-t*22)
	})
	for i, s := range kit {
		s.Name = KitNames[i]
	}
	return kit
}

func render(sr, seconds float64, fn func(t float64) float64) *Sample {
	n := int(seconds * sr)
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(max(-1, min(1, fn(float64(i) / sr))))
	}
	return &Sample{Data: data, Rate: int(sr)}
}

func snare(sr, tone, seconds float64, noise func() float64) *Sample {
	return render(sr, seconds, func(t float64) float64 {
		body := math.Sin(2*math.Pi*tone*t) * math.Exp(-t*30)
		return 0.5*body + 0.6*noise()*math.Exp(-t*22)
	})
}

func tom(sr, freq float64) *Sample {
	return render(sr, 0.35, func(t float64) float64 {
		f := freq * (1 + 0.4*math.Exp(-t*25))
		return math.Sin(2*math.Pi*f*t) * math.Exp(-t*9)
	})
}

// hat is highpassed noise; a one-pole lowpass is subtracted from the noise.
func hat(sr, seconds float64, noise func() float64) *Sample {
	var lp float64
	a := 1 - math.Exp(-2*math.Pi*6000/sr)
	decay := 4.6 / seconds
	return render(sr, seconds, func(t float64) float64 {
		n := noise()
		lp += a * (n - lp)
		return 0.7 * (n - lp) * math.Exp(-t*decay)
	})
}
