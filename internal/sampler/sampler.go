// Package sampler implements a 12-slot drum sampler. A note selects its slot
// by note mod 12; every slot plays independently with its own volume, pan,
// pitch and decay.
//
// Note and parameter calls may come from any goroutine; Process belongs to
// the audio goroutine.
package sampler

import (
	"errors"
	"math"
	"sync/atomic"
)

// SlotCount is the fixed number of sample slots.
const SlotCount = 12

const (
	decayNone    = 127
	silenceFloor = 1e-4
)

var (
	ErrNoSample   = errors.New("sampler: slot has no sample")
	ErrBadSlot    = errors.New("sampler: slot out of range")
	ErrEmptyAudio = errors.New("sampler: sample has no frames")
)

// Sample is immutable once handed to the sampler.
type Sample struct {
	Name string
	Data []float32 // mono, -1..1
	Rate int       // native sample rate
}

func (s *Sample) Len() int { return len(s.Data) }

// Slot playback state is one word: playing flag, velocity and a trigger count
// that tells the audio goroutine to restart the cursor.
const (
	playingBit = 1
	velShift   = 1
	seqShift   = 8
)

func packState(playing bool, vel uint8, seq uint32) uint32 {
	w := uint32(vel&0x7f)<<velShift | seq<<seqShift
	if playing {
		w |= playingBit
	}
	return w
}

func unpackState(w uint32) (playing bool, vel uint8, seq uint32) {
	return w&playingBit != 0, uint8(w >> velShift & 0x7f), w >> seqShift
}

type slot struct {
	sample atomic.Pointer[Sample]
	state  atomic.Uint32

	volume atomic.Uint32 // float32 bits
	pan    atomic.Uint32
	pitch  atomic.Uint32
	decay  atomic.Uint32 // per-sample envelope multiplier

	volumeMidi atomic.Uint32
	panMidi    atomic.Uint32
	pitchMidi  atomic.Uint32
	decayMidi  atomic.Uint32

	// Audio goroutine only.
	seen   uint32
	cursor float64
	env    float32
}

type Sampler struct {
	sampleRate float64
	slots      [SlotCount]slot
	selected   atomic.Int32

	master     atomic.Uint32
	reverbSend atomic.Uint32
	delaySend  atomic.Uint32
	reverbMidi atomic.Uint32
	delayMidi  atomic.Uint32
}

// New creates a sampler with every slot loaded from the built-in kit.
func New(sampleRate int) *Sampler {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	s := &Sampler{sampleRate: float64(sampleRate)}
	s.Init()
	for i, smp := range Kit(sampleRate) {
		s.slots[i].sample.Store(smp)
	}
	return s
}

// NewEmpty creates a sampler without samples; NoteOn is ignored until a slot
// is loaded.
func NewEmpty(sampleRate int) *Sampler {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	s := &Sampler{sampleRate: float64(sampleRate)}
	s.Init()
	return s
}

// Init restores default mix settings on every slot and stops playback.
// Loaded samples are kept.
func (s *Sampler) Init() {
	storeF32(&s.master, 1)
	s.SetReverbSend(0)
	s.SetDelaySend(0)
	s.selected.Store(0)
	for i := range s.slots {
		sl := &s.slots[i]
		s.setVolume(sl, 127)
		s.setPan(sl, 64)
		s.setPitch(sl, 64)
		storeF32(&sl.pitch, 1)
		s.setDecay(sl, decayNone)
		s.stop(sl)
	}
}

func slotIndex(note uint8) int { return int(note) % SlotCount }

// SampleRate is the engine rate the sampler renders at.
func (s *Sampler) SampleRate() int { return int(s.sampleRate) }

// NoteOn restarts the slot for note if it holds a sample.
func (s *Sampler) NoteOn(note, vel uint8) {
	sl := &s.slots[slotIndex(note)]
	if sl.sample.Load() == nil {
		return
	}
	for {
		old := sl.state.Load()
		_, _, seq := unpackState(old)
		if sl.state.CompareAndSwap(old, packState(true, vel, seq+1)) {
			return
		}
	}
}

// NoteOff stops the slot for note. The cursor is left where it was.
func (s *Sampler) NoteOff(note uint8) { s.stop(&s.slots[slotIndex(note)]) }

// AllNotesOff stops every slot.
func (s *Sampler) AllNotesOff() {
	for i := range s.slots {
		s.stop(&s.slots[i])
	}
}

func (s *Sampler) stop(sl *slot) {
	for {
		old := sl.state.Load()
		playing, vel, seq := unpackState(old)
		if !playing || sl.state.CompareAndSwap(old, packState(false, vel, seq)) {
			return
		}
	}
}

func (s *Sampler) IsSampleActive(note uint8) bool {
	playing, _, _ := unpackState(s.slots[slotIndex(note)].state.Load())
	return playing
}

// SamplesCount returns the number of slots.
func (s *Sampler) SamplesCount() int { return SlotCount }

// Loaded reports whether the slot for note holds a sample.
func (s *Sampler) Loaded(note uint8) bool {
	return s.slots[slotIndex(note)].sample.Load() != nil
}

// SampleName returns the name of the sample in the slot for note.
func (s *Sampler) SampleName(note uint8) string {
	if smp := s.slots[slotIndex(note)].sample.Load(); smp != nil {
		return smp.Name
	}
	return ""
}

// SetSample installs smp in slot i. Playback of the slot is stopped first.
func (s *Sampler) SetSample(i int, smp *Sample) error {
	if i < 0 || i >= SlotCount {
		return ErrBadSlot
	}
	if smp == nil || smp.Len() == 0 {
		return ErrEmptyAudio
	}
	cp := *smp
	if cp.Rate <= 0 {
		cp.Rate = int(s.sampleRate)
	}
	sl := &s.slots[i]
	s.stop(sl)
	sl.sample.Store(&cp)
	return nil
}

// Process renders one stereo frame from every playing slot.
func (s *Sampler) Process() (left, right float32) {
	master := loadF32(&s.master)
	for i := range s.slots {
		sl := &s.slots[i]
		w := sl.state.Load()
		playing, vel, seq := unpackState(w)
		if seq != sl.seen {
			sl.seen = seq
			sl.cursor = 0
			sl.env = 1
		}
		if !playing {
			continue
		}
		smp := sl.sample.Load()
		if smp == nil || sl.cursor >= float64(smp.Len()) {
			sl.state.CompareAndSwap(w, packState(false, vel, seq))
			continue
		}

		v := interpolate(smp.Data, sl.cursor)
		v *= loadF32(&sl.volume) * master * float32(vel) / 127 * sl.env
		pan := loadF32(&sl.pan)
		left += v * (1 - pan)
		right += v * pan

		sl.env *= loadF32(&sl.decay)
		sl.cursor += float64(loadF32(&sl.pitch)) * float64(smp.Rate) / s.sampleRate
		if sl.cursor >= float64(smp.Len()) || sl.env < silenceFloor {
			sl.state.CompareAndSwap(w, packState(false, vel, seq))
		}
	}
	return left, right
}

func interpolate(data []float32, pos float64) float32 {
	i := int(pos)
	if i+1 >= len(data) {
		return data[i]
	}
	frac := float32(pos - float64(i))
	return data[i] + frac*(data[i+1]-data[i])
}

// decayCoef returns the per-sample envelope multiplier for a decay control
// value. 127 plays the sample untouched.
func (s *Sampler) decayCoef(cc uint8) float32 {
	if cc >= decayNone {
		return 1
	}
	u := float64(cc) / 127
	tau := 0.01 + u*u*2
	return float32(math.Exp(-1 / (tau * s.sampleRate)))
}

func loadF32(a *atomic.Uint32) float32 { return math.Float32frombits(a.Load()) }

func storeF32(a *atomic.Uint32, v float32) { a.Store(math.Float32bits(v)) }
