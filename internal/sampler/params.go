package sampler

import "github.com/cbegin/acidbox-go/internal/dsp"

// Raw 0..127 setters act on the slot chosen with SelectNote and keep the raw
// value for readback.

// SelectNote picks the slot (note mod 12) the slot setters act on.
func (s *Sampler) SelectNote(note uint8) { s.selected.Store(int32(slotIndex(note))) }

// Selected returns the selected slot index.
func (s *Sampler) Selected() int { return int(s.selected.Load()) }

func (s *Sampler) sel() *slot { return &s.slots[s.selected.Load()] }

func (s *Sampler) SetNoteVolumeMidi(cc uint8) { s.setVolume(s.sel(), cc) }

func (s *Sampler) SetNotePanMidi(cc uint8) { s.setPan(s.sel(), cc) }

// SetSoundPitchMidi maps 0..127 linearly onto a playback ratio of 0.5..2.
func (s *Sampler) SetSoundPitchMidi(cc uint8) { s.setPitch(s.sel(), cc) }

// SetNoteDecayMidi sets the slot's decay; 127 plays the full sample.
func (s *Sampler) SetNoteDecayMidi(cc uint8) { s.setDecay(s.sel(), cc) }

// SetSoundPitch sets the selected slot's playback ratio directly.
func (s *Sampler) SetSoundPitch(ratio float32) {
	if ratio != ratio || ratio <= 0 {
		return
	}
	storeF32(&s.sel().pitch, dsp.Clamp32(ratio, 0, 4))
}

func (s *Sampler) setVolume(sl *slot, cc uint8) {
	cc = min(cc, 127)
	sl.volumeMidi.Store(uint32(cc))
	storeF32(&sl.volume, float32(cc)/127)
}

func (s *Sampler) setPan(sl *slot, cc uint8) {
	cc = min(cc, 127)
	sl.panMidi.Store(uint32(cc))
	storeF32(&sl.pan, float32(cc)/127)
}

func (s *Sampler) setPitch(sl *slot, cc uint8) {
	cc = min(cc, 127)
	sl.pitchMidi.Store(uint32(cc))
	storeF32(&sl.pitch, PitchFromMidi(cc))
}

func (s *Sampler) setDecay(sl *slot, cc uint8) {
	cc = min(cc, 127)
	sl.decayMidi.Store(uint32(cc))
	storeF32(&sl.decay, s.decayCoef(cc))
}

// PitchFromMidi is the controller-to-ratio curve used by SetSoundPitchMidi.
func PitchFromMidi(cc uint8) float32 {
	return 0.5 + float32(min(cc, 127))/127*1.5
}

func (s *Sampler) SoundVolumeMidi() uint8 { return uint8(s.sel().volumeMidi.Load()) }
func (s *Sampler) SoundPanMidi() uint8    { return uint8(s.sel().panMidi.Load()) }
func (s *Sampler) SoundPitchMidi() uint8  { return uint8(s.sel().pitchMidi.Load()) }
func (s *Sampler) SoundDecayMidi() uint8  { return uint8(s.sel().decayMidi.Load()) }

func (s *Sampler) SoundVolume() float32 { return loadF32(&s.sel().volume) }
func (s *Sampler) SoundPan() float32    { return loadF32(&s.sel().pan) }
func (s *Sampler) SoundPitch() float32  { return loadF32(&s.sel().pitch) }

// SoundSampleRate returns the native rate of the selected slot's sample, or
// the engine rate if the slot is empty.
func (s *Sampler) SoundSampleRate() int {
	if smp := s.sel().sample.Load(); smp != nil {
		return smp.Rate
	}
	return int(s.sampleRate)
}

// SetVolume sets the master level applied to every slot, 0..1.
func (s *Sampler) SetVolume(v float32) {
	if v != v {
		return
	}
	storeF32(&s.master, dsp.Clamp32(v, 0, 1))
}

func (s *Sampler) Volume() float32 { return loadF32(&s.master) }

func (s *Sampler) SetReverbSend(cc uint8) {
	cc = min(cc, 127)
	s.reverbMidi.Store(uint32(cc))
	storeF32(&s.reverbSend, float32(cc)/127)
}

func (s *Sampler) SetDelaySend(cc uint8) {
	cc = min(cc, 127)
	s.delayMidi.Store(uint32(cc))
	storeF32(&s.delaySend, float32(cc)/127)
}

// ReverbSend returns the drum bus reverb send level, 0..1.
func (s *Sampler) ReverbSend() float32 { return loadF32(&s.reverbSend) }

// DelaySend returns the drum bus delay send level, 0..1.
func (s *Sampler) DelaySend() float32 { return loadF32(&s.delaySend) }

func (s *Sampler) ReverbSendMidi() uint8 { return uint8(s.reverbMidi.Load()) }
func (s *Sampler) DelaySendMidi() uint8  { return uint8(s.delayMidi.Load()) }
