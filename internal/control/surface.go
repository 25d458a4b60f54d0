package control

import (
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
)

// Synth is the monophonic voice as seen from the surface.
type Synth interface {
	NoteOn(note, vel uint8)
	NoteOff(note, vel uint8)
	StopSound()
	SetSlideOn()
	SetSlideOff()
	SetVolumeMidi(v uint8)
	SetWaveformMidi(v uint8)
	SetResonanceMidi(v uint8)
	SetDecayMidi(v uint8)
	SetAttackMidi(v uint8)
	SetCutoffMidi(v uint8)
	SetEnvModMidi(v uint8)
	SetAccentMidi(v uint8)
}

// Drums is the sampler as seen from the surface. Slot setters act on the
// slot picked by SelectNote.
type Drums interface {
	NoteOn(note, vel uint8)
	NoteOff(note uint8)
	AllNotesOff()
	SelectNote(note uint8)
	SetNoteVolumeMidi(v uint8)
	SetNotePanMidi(v uint8)
	SetNoteDecayMidi(v uint8)
	SetSoundPitchMidi(v uint8)
	SetReverbSend(v uint8)
	SetDelaySend(v uint8)
}

// Mixer holds the synth channel strip and the voice's waveshapers.
type Mixer interface {
	SetSynthPanMidi(v uint8)
	SetSynthReverbSend(v uint8)
	SetSynthDelaySend(v uint8)
	SetDistortionMidi(v uint8)
	SetOverdriveMidi(v uint8)
}

// Config assigns the instruments to MIDI channels (0-based).
type Config struct {
	SynthChannel uint8
	DrumChannel  uint8
	Table        Table
}

func DefaultConfig() Config {
	return Config{
		SynthChannel: 0,
		DrumChannel:  9,
		Table:        DefaultTable(),
	}
}

// Kind classifies a decoded message.
type Kind uint8

const (
	KindNone Kind = iota
	KindNoteOn
	KindNoteOff
	KindControlChange
)

// Event is the last message the surface acted on.
type Event struct {
	Kind    Kind
	Channel uint8
	Data1   uint8
	Data2   uint8
}

func (e Event) pack() uint32 {
	return uint32(e.Kind)<<24 | uint32(e.Channel)<<16 | uint32(e.Data1)<<8 | uint32(e.Data2)
}

func unpackEvent(w uint32) Event {
	return Event{Kind: Kind(w >> 24), Channel: uint8(w >> 16), Data1: uint8(w >> 8), Data2: uint8(w)}
}

// Surface decodes channel voice messages and dispatches them. Any target may
// be nil; its messages are then dropped. Every target call is a single atomic
// store on the receiving side, so Handle may run on the MIDI goroutine while
// the audio goroutine renders.
type Surface struct {
	cfg   Config
	synth Synth
	drums Drums
	mixer Mixer

	last    atomic.Uint32
	handled atomic.Uint64
}

func New(cfg Config, synth Synth, drums Drums, mixer Mixer) *Surface {
	return &Surface{cfg: cfg, synth: synth, drums: drums, mixer: mixer}
}

func (s *Surface) Config() Config { return s.cfg }

// Last returns the most recent message that reached a target.
func (s *Surface) Last() (Event, bool) {
	e := unpackEvent(s.last.Load())
	return e, e.Kind != KindNone
}

// Handled counts the messages that reached a target.
func (s *Surface) Handled() uint64 { return s.handled.Load() }

// Handle decodes one message and reports whether it was acted on. Unknown
// statuses, unmapped controllers and foreign channels are ignored.
func (s *Surface) Handle(msg []byte) bool {
	if len(msg) < 3 {
		return false
	}
	m := midi.Message(msg[:3])
	var ch, d1, d2 uint8
	var ev Event
	switch {
	case m.GetNoteStart(&ch, &d1, &d2):
		ev = Event{KindNoteOn, ch, d1, d2}
	case m.GetNoteEnd(&ch, &d1):
		// Note on with velocity 0 lands here too.
		ev = Event{KindNoteOff, ch, d1, 0}
	case m.GetControlChange(&ch, &d1, &d2):
		ev = Event{KindControlChange, ch, d1, d2}
	default:
		return false
	}
	var ok bool
	switch ch {
	case s.cfg.SynthChannel:
		ok = s.synthEvent(ev)
	case s.cfg.DrumChannel:
		ok = s.drumEvent(ev)
	}
	if ok {
		s.last.Store(ev.pack())
		s.handled.Add(1)
	}
	return ok
}

func (s *Surface) synthEvent(ev Event) bool {
	if ev.Kind == KindControlChange && s.cfg.Table.Lookup(ev.Data1) == TargetAllOff {
		s.allOff()
		return true
	}
	if s.synth == nil {
		return false
	}
	switch ev.Kind {
	case KindNoteOn:
		s.synth.NoteOn(ev.Data1, ev.Data2)
		return true
	case KindNoteOff:
		s.synth.NoteOff(ev.Data1, ev.Data2)
		return true
	}

	v := ev.Data2
	switch s.cfg.Table.Lookup(ev.Data1) {
	case TargetVolume:
		s.synth.SetVolumeMidi(v)
	case TargetSlide:
		if v >= 64 {
			s.synth.SetSlideOn()
		} else {
			s.synth.SetSlideOff()
		}
	case TargetWaveform:
		s.synth.SetWaveformMidi(v)
	case TargetResonance:
		s.synth.SetResonanceMidi(v)
	case TargetDecay:
		s.synth.SetDecayMidi(v)
	case TargetAttack:
		s.synth.SetAttackMidi(v)
	case TargetCutoff:
		s.synth.SetCutoffMidi(v)
	case TargetEnvMod:
		s.synth.SetEnvModMidi(v)
	case TargetAccent:
		s.synth.SetAccentMidi(v)
	case TargetPan, TargetReverbSend, TargetDelaySend, TargetDistortion, TargetOverdrive:
		return s.mixerEvent(s.cfg.Table.Lookup(ev.Data1), v)
	default:
		return false
	}
	return true
}

func (s *Surface) mixerEvent(t Target, v uint8) bool {
	if s.mixer == nil {
		return false
	}
	switch t {
	case TargetPan:
		s.mixer.SetSynthPanMidi(v)
	case TargetReverbSend:
		s.mixer.SetSynthReverbSend(v)
	case TargetDelaySend:
		s.mixer.SetSynthDelaySend(v)
	case TargetDistortion:
		s.mixer.SetDistortionMidi(v)
	case TargetOverdrive:
		s.mixer.SetOverdriveMidi(v)
	default:
		return false
	}
	return true
}

func (s *Surface) drumEvent(ev Event) bool {
	if ev.Kind == KindControlChange && s.cfg.Table.Lookup(ev.Data1) == TargetAllOff {
		s.allOff()
		return true
	}
	if s.drums == nil {
		return false
	}
	switch ev.Kind {
	case KindNoteOn:
		s.drums.SelectNote(ev.Data1)
		s.drums.NoteOn(ev.Data1, ev.Data2)
		return true
	case KindNoteOff:
		s.drums.NoteOff(ev.Data1)
		return true
	}

	v := ev.Data2
	switch s.cfg.Table.Lookup(ev.Data1) {
	case TargetVolume:
		s.drums.SetNoteVolumeMidi(v)
	case TargetPan:
		s.drums.SetNotePanMidi(v)
	case TargetDecay:
		s.drums.SetNoteDecayMidi(v)
	case TargetCutoff:
		// The drum channel has no filter; the cutoff knob tunes the slot.
		s.drums.SetSoundPitchMidi(v)
	case TargetReverbSend:
		s.drums.SetReverbSend(v)
	case TargetDelaySend:
		s.drums.SetDelaySend(v)
	default:
		return false
	}
	return true
}

func (s *Surface) allOff() {
	if s.synth != nil {
		s.synth.StopSound()
	}
	if s.drums != nil {
		s.drums.AllNotesOff()
	}
}
