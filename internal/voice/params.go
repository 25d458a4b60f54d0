package voice

import (
	"math"

	"github.com/cbegin/acidbox-go/internal/dsp"
)

// SetVolume sets the output level, 0..1.
func (v *Voice) SetVolume(vol float64) { storeF(&v.volume, dsp.Clamp(nanTo(vol, 0), 0, 1)) }

func (v *Voice) Volume() float64 { return loadF(&v.volume) }

// SetCutoff sets the filter base cutoff in Hz. The filter clamps it further
// to its own usable range.
func (v *Voice) SetCutoff(hz float64) {
	storeF(&v.cutoff, dsp.Clamp(nanTo(hz, minCutoffHz), 10, 0.45*v.params.SampleRate))
}

func (v *Voice) Cutoff() float64 { return loadF(&v.cutoff) }

// SetResonance sets the filter resonance, 0..1.
func (v *Voice) SetResonance(r float64) { storeF(&v.resonance, dsp.Clamp(nanTo(r, 0), 0, 1)) }

func (v *Voice) Resonance() float64 { return loadF(&v.resonance) }

func (v *Voice) SetWaveform(w Waveform) {
	if w < Sine || w > Square {
		w = Sine
	}
	v.waveform.Store(int32(w))
}

func (v *Voice) Waveform() Waveform { return Waveform(v.waveform.Load()) }

// SetAttack sets the amplitude attack in seconds (0 = instant).
func (v *Voice) SetAttack(sec float64) {
	storeF(&v.attack, dsp.Clamp(nanTo(sec, 0), 0, maxAttackSec))
}

func (v *Voice) Attack() float64 { return loadF(&v.attack) }

// SetDecay sets the amplitude decay time constant in seconds. +Inf holds the
// note at full level until it is released.
func (v *Voice) SetDecay(sec float64) {
	if math.IsInf(sec, 1) {
		storeF(&v.decay, sec)
		return
	}
	storeF(&v.decay, dsp.Clamp(nanTo(sec, maxDecaySec), 0.005, maxDecaySec))
}

func (v *Voice) Decay() float64 { return loadF(&v.decay) }

// SetEnvMod sets how far the filter envelope opens the cutoff, 0..1.
func (v *Voice) SetEnvMod(m float64) { storeF(&v.envMod, dsp.Clamp(nanTo(m, 0), 0, 1)) }

func (v *Voice) EnvMod() float64 { return loadF(&v.envMod) }

// SetAccent sets the accent depth, 0..1. Accent applies to notes with
// velocity 100 and above.
func (v *Voice) SetAccent(a float64) { storeF(&v.accent, dsp.Clamp(nanTo(a, 0), 0, 1)) }

func (v *Voice) Accent() float64 { return loadF(&v.accent) }

// SetCutoffMidi maps a controller value exponentially onto 40 Hz..12 kHz.
func (v *Voice) SetCutoffMidi(cc uint8) { v.SetCutoff(CutoffFromMidi(cc)) }

// CutoffFromMidi is the controller-to-Hz curve used by SetCutoffMidi.
func CutoffFromMidi(cc uint8) float64 {
	return minCutoffHz * math.Pow(maxCutoffHz/minCutoffHz, dsp.CCToUnit(cc))
}

func (v *Voice) SetResonanceMidi(cc uint8) { v.SetResonance(dsp.CCToUnit(cc)) }

func (v *Voice) SetVolumeMidi(cc uint8) { v.SetVolume(dsp.CCToUnit(cc)) }

// SetWaveformMidi splits the controller range into three equal zones.
func (v *Voice) SetWaveformMidi(cc uint8) {
	switch {
	case cc < 43:
		v.SetWaveform(Sine)
	case cc < 86:
		v.SetWaveform(Saw)
	default:
		v.SetWaveform(Square)
	}
}

// SetAttackMidi maps 0 to an instant attack and 127 to two seconds.
func (v *Voice) SetAttackMidi(cc uint8) {
	u := dsp.CCToUnit(cc)
	v.SetAttack(u * u * maxAttackSec)
}

// SetDecayMidi maps 0..126 onto 5 ms..4 s; 127 sustains.
func (v *Voice) SetDecayMidi(cc uint8) {
	if cc >= 127 {
		v.SetDecay(math.Inf(1))
		return
	}
	u := dsp.CCToUnit(cc)
	v.SetDecay(0.005 + u*u*maxDecaySec)
}

func (v *Voice) SetEnvModMidi(cc uint8) { v.SetEnvMod(dsp.CCToUnit(cc)) }

func (v *Voice) SetAccentMidi(cc uint8) { v.SetAccent(dsp.CCToUnit(cc)) }

func nanTo(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}
