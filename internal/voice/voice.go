// Package voice implements the monophonic acid-bass voice: an oscillator with
// glide, an amplitude and a filter envelope, accent, an owned resonant filter
// and a pair of waveshaper references.
//
// Setters may be called from any goroutine. Process belongs to the audio
// goroutine.
package voice

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/acidbox-go/internal/dsp"
	"github.com/cbegin/acidbox-go/internal/effects"
	"github.com/cbegin/acidbox-go/internal/filter"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Saw
	Square
)

func (w Waveform) String() string {
	switch w {
	case Saw:
		return "saw"
	case Square:
		return "square"
	default:
		return "sine"
	}
}

const (
	minCutoffHz = 40.0
	maxCutoffHz = 12000.0
	// EnvModOctaves is how far a full filter envelope opens the cutoff.
	EnvModOctaves = 4.0
	maxAttackSec  = 2.0
	maxDecaySec   = 4.0
	// filterEnvMaxSec bounds the filter envelope when the amp decay is infinite.
	filterEnvMaxSec = 2.0
	accentThreshold = 100
)

type Params struct {
	SampleRate float64
	Filter     filter.Kind
	Waveform   Waveform
	Volume     float64 // 0..1
	Cutoff     float64 // Hz
	Resonance  float64 // 0..1
	GlideTime  float64 // seconds to reach the target pitch
	AccentGain float64 // extra gain of an accented note at accent 1
}

func DefaultParams() Params {
	return Params{
		SampleRate: 44100,
		Filter:     filter.KindTeeBee,
		Waveform:   Sine,
		Volume:     1,
		Cutoff:     1000,
		Resonance:  0,
		GlideTime:  0.06,
		AccentGain: 0.5,
	}
}

// Note state is packed into one word so the audio goroutine always reads a
// consistent note, velocity and trigger count.
const (
	noteMask  = 0x7f
	velShift  = 8
	activeBit = 1 << 16
	seqShift  = 32
)

func pack(note, vel uint8, active bool, seq uint32) uint64 {
	w := uint64(note&noteMask) | uint64(vel&0x7f)<<velShift | uint64(seq)<<seqShift
	if active {
		w |= activeBit
	}
	return w
}

func unpack(w uint64) (note, vel uint8, active bool, seq uint32) {
	return uint8(w & noteMask), uint8(w >> velShift & 0x7f), w&activeBit != 0, uint32(w >> seqShift)
}

type Voice struct {
	params Params
	filt   filter.Filter
	fx     []effects.Shaper

	state atomic.Uint64
	slide atomic.Bool

	volume    atomic.Uint64 // float64 bits
	cutoff    atomic.Uint64
	resonance atomic.Uint64
	attack    atomic.Uint64 // seconds
	decay     atomic.Uint64 // seconds, +Inf = sustain
	envMod    atomic.Uint64
	accent    atomic.Uint64
	waveform  atomic.Int32

	// Audio goroutine only.
	seen       uint32
	sounding   bool
	phase      float64 // radians, [0, 2pi)
	logFreq    float64
	targetLog  float64
	glideCoef  float64
	gliding    bool
	amp        float64
	attacking  bool
	filtEnv    float64
	accented   bool
	velGain    float64
	lastAttack float64
	attackStep float64
	lastDecay  float64
	decayCoef  float64
	fenvCoef   float64
	lastCut    float64
	lastRes    float64
}

// New creates a voice. fx are applied in order after the filter; the caller
// keeps ownership and may change their parameters at any time.
func New(p Params, fx ...effects.Shaper) *Voice {
	dsp.InitTables()
	if p.SampleRate <= 0 {
		p.SampleRate = 44100
	}
	if p.GlideTime <= 0 {
		p.GlideTime = DefaultParams().GlideTime
	}
	v := &Voice{
		params: p,
		filt:   filter.New(p.Filter, p.SampleRate),
		fx:     fx,
	}
	v.glideCoef = 1 - math.Exp(-4.6/(p.GlideTime*p.SampleRate))
	v.Init()
	return v
}

// Init restores the constructor parameters and silences the voice.
func (v *Voice) Init() {
	v.SetVolume(v.params.Volume)
	v.SetCutoff(v.params.Cutoff)
	v.SetResonance(v.params.Resonance)
	v.SetWaveform(v.params.Waveform)
	storeF(&v.attack, 0)
	storeF(&v.decay, math.Inf(1))
	storeF(&v.envMod, 0)
	storeF(&v.accent, 0)
	v.slide.Store(false)
	_, _, _, seq := unpack(v.state.Load())
	v.state.Store(pack(0, 0, false, seq))
	v.lastAttack, v.lastDecay = -1, -1
	v.lastCut, v.lastRes = -1, -1
}

// FilterKind reports which filter the voice was built with.
func (v *Voice) FilterKind() filter.Kind { return v.params.Filter }

// NoteOn starts (or restarts) a note.
func (v *Voice) NoteOn(note, vel uint8) {
	for {
		old := v.state.Load()
		_, _, _, seq := unpack(old)
		if v.state.CompareAndSwap(old, pack(note, vel, true, seq+1)) {
			return
		}
	}
}

// NoteOff releases the voice only if note is the one sounding.
func (v *Voice) NoteOff(note, _ uint8) {
	for {
		old := v.state.Load()
		cur, vel, active, seq := unpack(old)
		if !active || cur != note&noteMask {
			return
		}
		if v.state.CompareAndSwap(old, pack(cur, vel, false, seq)) {
			return
		}
	}
}

// StopSound silences the voice whatever it is playing.
func (v *Voice) StopSound() {
	for {
		old := v.state.Load()
		note, vel, _, seq := unpack(old)
		if v.state.CompareAndSwap(old, pack(note, vel, false, seq)) {
			return
		}
	}
}

func (v *Voice) Active() bool {
	_, _, active, _ := unpack(v.state.Load())
	return active
}

func (v *Voice) Note() uint8 {
	note, _, _, _ := unpack(v.state.Load())
	return note
}

func (v *Voice) Velocity() uint8 {
	_, vel, _, _ := unpack(v.state.Load())
	return vel
}

func (v *Voice) SetSlideOn()        { v.slide.Store(true) }
func (v *Voice) SetSlideOff()       { v.slide.Store(false) }
func (v *Voice) SlideEnabled() bool { return v.slide.Load() }

// Freq returns the oscillator frequency of the last processed sample.
// Only meaningful on the audio goroutine or after it has stopped.
func (v *Voice) Freq() float64 { return math.Exp2(v.logFreq) }

// Process renders one sample.
func (v *Voice) Process() float32 {
	note, vel, active, seq := unpack(v.state.Load())
	if seq != v.seen {
		v.seen = seq
		if active {
			v.trigger(note, vel)
		}
	}
	if !active {
		v.sounding = false
		return 0
	}

	sr := v.params.SampleRate
	if v.gliding {
		v.logFreq += (v.targetLog - v.logFreq) * v.glideCoef
		if math.Abs(v.targetLog-v.logFreq) < 1e-5 {
			v.logFreq = v.targetLog
			v.gliding = false
		}
	}
	freq := math.Exp2(v.logFreq)
	dt := freq / sr
	osc := v.oscillate(dt)
	v.phase += dsp.TwoPi * dt
	for v.phase >= dsp.TwoPi {
		v.phase -= dsp.TwoPi
	}

	v.advanceEnvelopes()
	v.updateFilter()

	x := osc * v.velGain * loadF(&v.volume) * v.amp
	if v.accented {
		x *= 1 + loadF(&v.accent)*v.params.AccentGain
	}
	y := v.filt.Process(float32(x))
	for _, fx := range v.fx {
		y = fx.Process(y)
	}
	if !dsp.Finite(y) {
		v.filt.Reset()
		return 0
	}
	return y
}

func (v *Voice) trigger(note, vel uint8) {
	target := math.Log2(dsp.MidiToFreq(float64(note)))
	if v.sounding && v.slide.Load() {
		// Legato: glide to the new pitch, envelopes keep running.
		v.targetLog = target
		v.gliding = true
		return
	}
	if !v.sounding {
		v.phase = 0
		v.filt.Reset()
	}
	v.sounding = true
	v.logFreq, v.targetLog = target, target
	v.gliding = false
	v.velGain = float64(vel) / 127
	v.accented = vel >= accentThreshold && loadF(&v.accent) > 0
	v.filtEnv = 1
	if loadF(&v.attack) > 0 {
		v.amp = 0
		v.attacking = true
	} else {
		v.amp = 1
		v.attacking = false
	}
}

func (v *Voice) oscillate(dt float64) float64 {
	t := v.phase / dsp.TwoPi
	switch Waveform(v.waveform.Load()) {
	case Saw:
		return 2*t - 1 - polyBLEP(t, dt)
	case Square:
		sq := 1.0
		if t >= 0.5 {
			sq = -1
		}
		return sq + polyBLEP(t, dt) - polyBLEP(math.Mod(t+0.5, 1), dt)
	default:
		return float64(dsp.Sin(t))
	}
}

// polyBLEP is the two-sample polynomial correction for a unit step at t=0.
func polyBLEP(t, dt float64) float64 {
	switch {
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	default:
		return 0
	}
}

func (v *Voice) advanceEnvelopes() {
	sr := v.params.SampleRate
	if a := loadF(&v.attack); a != v.lastAttack {
		v.lastAttack = a
		v.attackStep = 1
		if a > 0 {
			v.attackStep = 1 / (a * sr)
		}
	}
	if d := loadF(&v.decay); d != v.lastDecay {
		v.lastDecay = d
		v.decayCoef = 1
		if !math.IsInf(d, 1) {
			v.decayCoef = math.Exp(-1 / (d * sr))
		}
		v.fenvCoef = math.Exp(-1 / (math.Min(d, filterEnvMaxSec) * sr))
	}

	if v.attacking {
		v.amp += v.attackStep
		if v.amp >= 1 {
			v.amp = 1
			v.attacking = false
		}
	} else {
		v.amp *= v.decayCoef
	}
	v.filtEnv *= v.fenvCoef
}

func (v *Voice) updateFilter() {
	cut := loadF(&v.cutoff)
	mod := loadF(&v.envMod)
	if v.accented {
		mod += 0.5 * loadF(&v.accent)
	}
	if mod > 0 {
		cut *= math.Exp2(EnvModOctaves * math.Min(mod, 1.5) * v.filtEnv)
	}
	if math.Abs(cut-v.lastCut) > 0.01 {
		v.lastCut = cut
		v.filt.SetCutoff(cut)
	}
	if r := loadF(&v.resonance); r != v.lastRes {
		v.lastRes = r
		v.filt.SetResonance(r)
	}
}

func loadF(a *atomic.Uint64) float64 { return math.Float64frombits(a.Load()) }

func storeF(a *atomic.Uint64, v float64) { a.Store(math.Float64bits(v)) }
