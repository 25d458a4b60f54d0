package control

import (
	"fmt"
	"slices"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

type recorder struct{ calls []string }

func (r *recorder) rec(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) last() string {
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}

type fakeSynth struct{ recorder }

func (f *fakeSynth) NoteOn(n, v uint8)        { f.rec("noteon %d %d", n, v) }
func (f *fakeSynth) NoteOff(n, v uint8)       { f.rec("noteoff %d", n) }
func (f *fakeSynth) StopSound()               { f.rec("stop") }
func (f *fakeSynth) SetSlideOn()              { f.rec("slide on") }
func (f *fakeSynth) SetSlideOff()             { f.rec("slide off") }
func (f *fakeSynth) SetVolumeMidi(v uint8)    { f.rec("volume %d", v) }
func (f *fakeSynth) SetWaveformMidi(v uint8)  { f.rec("waveform %d", v) }
func (f *fakeSynth) SetResonanceMidi(v uint8) { f.rec("resonance %d", v) }
func (f *fakeSynth) SetDecayMidi(v uint8)     { f.rec("decay %d", v) }
func (f *fakeSynth) SetAttackMidi(v uint8)    { f.rec("attack %d", v) }
func (f *fakeSynth) SetCutoffMidi(v uint8)    { f.rec("cutoff %d", v) }
func (f *fakeSynth) SetEnvModMidi(v uint8)    { f.rec("envmod %d", v) }
func (f *fakeSynth) SetAccentMidi(v uint8)    { f.rec("accent %d", v) }

type fakeDrums struct{ recorder }

func (f *fakeDrums) NoteOn(n, v uint8)         { f.rec("noteon %d %d", n, v) }
func (f *fakeDrums) NoteOff(n uint8)           { f.rec("noteoff %d", n) }
func (f *fakeDrums) AllNotesOff()              { f.rec("alloff") }
func (f *fakeDrums) SelectNote(n uint8)        { f.rec("select %d", n) }
func (f *fakeDrums) SetNoteVolumeMidi(v uint8) { f.rec("volume %d", v) }
func (f *fakeDrums) SetNotePanMidi(v uint8)    { f.rec("pan %d", v) }
func (f *fakeDrums) SetNoteDecayMidi(v uint8)  { f.rec("decay %d", v) }
func (f *fakeDrums) SetSoundPitchMidi(v uint8) { f.rec("pitch %d", v) }
func (f *fakeDrums) SetReverbSend(v uint8)     { f.rec("reverb %d", v) }
func (f *fakeDrums) SetDelaySend(v uint8)      { f.rec("delay %d", v) }

type fakeMixer struct{ recorder }

func (f *fakeMixer) SetSynthPanMidi(v uint8)    { f.rec("pan %d", v) }
func (f *fakeMixer) SetSynthReverbSend(v uint8) { f.rec("reverb %d", v) }
func (f *fakeMixer) SetSynthDelaySend(v uint8)  { f.rec("delay %d", v) }
func (f *fakeMixer) SetDistortionMidi(v uint8)  { f.rec("distortion %d", v) }
func (f *fakeMixer) SetOverdriveMidi(v uint8)   { f.rec("overdrive %d", v) }

func newTestSurface() (*Surface, *fakeSynth, *fakeDrums, *fakeMixer) {
	s, d, m := &fakeSynth{}, &fakeDrums{}, &fakeMixer{}
	return New(DefaultConfig(), s, d, m), s, d, m
}

func TestNoteOn(t *testing.T) {
	surf, synth, _, _ := newTestSurface()
	if !surf.Handle([]byte{0x90, 60, 100}) {
		t.Fatal("note on not handled")
	}
	if synth.last() != "noteon 60 100" {
		t.Errorf("synth got %q", synth.last())
	}
	ev, ok := surf.Last()
	if !ok || ev != (Event{KindNoteOn, 0, 60, 100}) {
		t.Errorf("Last() = %+v %v", ev, ok)
	}
}

func TestNoteOff(t *testing.T) {
	surf, synth, _, _ := newTestSurface()
	surf.Handle(midi.NoteOn(0, 60, 100))
	surf.Handle(midi.NoteOff(0, 60))
	if synth.last() != "noteoff 60" {
		t.Errorf("synth got %q", synth.last())
	}
	surf.Handle([]byte{0x80, 61, 64})
	if synth.last() != "noteoff 61" {
		t.Errorf("note off with release velocity: %q", synth.last())
	}
}

func TestNoteOnZeroVelocityIsNoteOff(t *testing.T) {
	surf, synth, _, _ := newTestSurface()
	surf.Handle([]byte{0x90, 60, 0})
	if want := []string{"noteoff 60"}; !slices.Equal(synth.calls, want) {
		t.Errorf("calls = %v, want %v", synth.calls, want)
	}
}

func TestSynthControlTable(t *testing.T) {
	tests := []struct {
		cc     uint8
		synth  string
		mixer  string
		target Target
	}{
		{CCVolume, "volume 100", "", TargetVolume},
		{CCPan, "", "pan 100", TargetPan},
		{CCWaveform, "waveform 100", "", TargetWaveform},
		{CCResonance, "resonance 100", "", TargetResonance},
		{CCDecay, "decay 100", "", TargetDecay},
		{CCAttack, "attack 100", "", TargetAttack},
		{CCCutoff, "cutoff 100", "", TargetCutoff},
		{CCEnvMod, "envmod 100", "", TargetEnvMod},
		{CCAccent, "accent 100", "", TargetAccent},
		{CCReverbSend, "", "reverb 100", TargetReverbSend},
		{CCDelaySend, "", "delay 100", TargetDelaySend},
		{CCDistortion, "", "distortion 100", TargetDistortion},
		{CCOverdrive, "", "overdrive 100", TargetOverdrive},
		{CCSlide, "slide on", "", TargetSlide},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			surf, synth, _, mixer := newTestSurface()
			if !surf.Handle(midi.ControlChange(0, tt.cc, 100)) {
				t.Fatalf("cc %d not handled", tt.cc)
			}
			if synth.last() != tt.synth {
				t.Errorf("synth got %q, want %q", synth.last(), tt.synth)
			}
			if mixer.last() != tt.mixer {
				t.Errorf("mixer got %q, want %q", mixer.last(), tt.mixer)
			}
			tbl := DefaultTable()
			if got := tbl.Lookup(tt.cc); got != tt.target {
				t.Errorf("Lookup(%d) = %v", tt.cc, got)
			}
		})
	}
}

func TestCutoffCC(t *testing.T) {
	surf, synth, _, _ := newTestSurface()
	surf.Handle([]byte{0xB0, CCCutoff, 100})
	if synth.last() != "cutoff 100" {
		t.Errorf("synth got %q", synth.last())
	}
	ev, _ := surf.Last()
	if ev.Data1 != CCCutoff || ev.Data2 != 100 {
		t.Errorf("Last() = %+v", ev)
	}
}

func TestSlideOff(t *testing.T) {
	surf, synth, _, _ := newTestSurface()
	surf.Handle(midi.ControlChange(0, CCSlide, 10))
	if synth.last() != "slide off" {
		t.Errorf("synth got %q", synth.last())
	}
}

func TestUnknownIgnored(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
	}{
		{"unmapped cc", []byte{0xB0, 1, 64}},
		{"pitch bend", []byte{0xE0, 0, 64}},
		{"program change", []byte{0xC0, 5}},
		{"short", []byte{0x90, 60}},
		{"empty", nil},
		{"foreign channel", []byte{0x93, 60, 100}},
		{"aftertouch", []byte{0xA0, 60, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surf, synth, drums, mixer := newTestSurface()
			if surf.Handle(tt.msg) {
				t.Error("message should be ignored")
			}
			if len(synth.calls)+len(drums.calls)+len(mixer.calls) != 0 {
				t.Errorf("targets touched: %v %v %v", synth.calls, drums.calls, mixer.calls)
			}
			if _, ok := surf.Last(); ok {
				t.Error("Last() should be empty")
			}
		})
	}
}

func TestDrumChannel(t *testing.T) {
	surf, synth, drums, _ := newTestSurface()
	surf.Handle(midi.NoteOn(9, 38, 90))
	surf.Handle(midi.ControlChange(9, CCPan, 0))
	surf.Handle(midi.ControlChange(9, CCVolume, 64))
	surf.Handle(midi.ControlChange(9, CCDecay, 32))
	surf.Handle(midi.ControlChange(9, CCCutoff, 127))
	surf.Handle(midi.ControlChange(9, CCReverbSend, 20))
	surf.Handle(midi.ControlChange(9, CCDelaySend, 30))
	surf.Handle(midi.NoteOff(9, 38))
	want := []string{
		"select 38", "noteon 38 90",
		"pan 0", "volume 64", "decay 32", "pitch 127",
		"reverb 20", "delay 30",
		"noteoff 38",
	}
	if !slices.Equal(drums.calls, want) {
		t.Errorf("drum calls:\n got %v\nwant %v", drums.calls, want)
	}
	if len(synth.calls) != 0 {
		t.Errorf("synth touched: %v", synth.calls)
	}
	if surf.Handle(midi.ControlChange(9, CCWaveform, 1)) {
		t.Error("waveform has no drum target")
	}
}

func TestAllOff(t *testing.T) {
	for _, cc := range []uint8{CCAllSoundOff, CCAllNotesOff} {
		for _, ch := range []uint8{0, 9} {
			surf, synth, drums, _ := newTestSurface()
			surf.Handle(midi.ControlChange(ch, cc, 0))
			if synth.last() != "stop" || drums.last() != "alloff" {
				t.Errorf("cc %d ch %d: synth %v drums %v", cc, ch, synth.calls, drums.calls)
			}
		}
	}
}

func TestNilTargets(t *testing.T) {
	surf := New(DefaultConfig(), nil, nil, nil)
	msgs := [][]byte{
		midi.NoteOn(0, 60, 100),
		midi.ControlChange(0, CCPan, 3),
		midi.NoteOn(9, 36, 100),
		midi.ControlChange(0, CCAllNotesOff, 0),
	}
	for _, m := range msgs[:3] {
		if surf.Handle(m) {
			t.Errorf("%v handled without a target", m)
		}
	}
	if !surf.Handle(msgs[3]) {
		t.Error("all notes off should always be accepted")
	}
	if surf.Handled() != 1 {
		t.Errorf("Handled() = %d", surf.Handled())
	}
}

func TestCustomChannels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SynthChannel = 2
	cfg.DrumChannel = 3
	s, d, m := &fakeSynth{}, &fakeDrums{}, &fakeMixer{}
	surf := New(cfg, s, d, m)
	surf.Handle(midi.NoteOn(2, 50, 1))
	surf.Handle(midi.NoteOn(3, 51, 2))
	surf.Handle(midi.NoteOn(0, 52, 3))
	if s.last() != "noteon 50 1" || d.last() != "noteon 51 2" {
		t.Errorf("synth %v drums %v", s.calls, d.calls)
	}
	if len(s.calls) != 1 {
		t.Errorf("channel 0 should be ignored: %v", s.calls)
	}
}

func TestTargetNames(t *testing.T) {
	if TargetCutoff.String() != "cutoff" || Target(99).String() != "unknown" {
		t.Error("unexpected target names")
	}
	tbl := DefaultTable()
	if tbl.Lookup(200) != TargetNone {
		t.Error("out-of-range controller should map to none")
	}
}

func BenchmarkHandle(b *testing.B) {
	surf, _, _, _ := newTestSurface()
	msg := []byte{0xB0, CCCutoff, 0}
	for i := 0; i < b.N; i++ {
		msg[2] = byte(i & 0x7f)
		surf.Handle(msg)
	}
}
