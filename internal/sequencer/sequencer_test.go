package sequencer

import (
	"bytes"
	"fmt"
	"slices"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// countingEngine records the frame each message arrives at.
type countingEngine struct {
	frames   int
	got      []int
	msgs     [][]byte
	sounding bool
	latch    bool // note on makes the engine sound until Reset
	resets   int
}

func (e *countingEngine) HandleMIDI(msg []byte) bool {
	e.got = append(e.got, e.frames)
	e.msgs = append(e.msgs, msg)
	switch {
	case msg[0]&0xF0 == 0x90 && e.latch:
		e.sounding = true
	}
	return true
}

func (e *countingEngine) RenderFrame() (float32, float32) {
	e.frames++
	return 1, -1
}

func (e *countingEngine) Sounding() bool { return e.sounding }

func (e *countingEngine) Reset() {
	e.sounding = false
	e.resets++
}

func encode(t *testing.T, tracks ...smf.Track) *bytes.Buffer {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	for _, tr := range tracks {
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func frames(evs []Event) []int64 {
	out := make([]int64, len(evs))
	for i, ev := range evs {
		out[i] = ev.Frame
	}
	return out
}

func TestLoadTempoMap(t *testing.T) {
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Add(0, smf.MetaTempo(60))
	tr.Add(960, midi.NoteOn(0, 62, 90))
	evs, err := Load(encode(t, tr), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{0, 500, 1500}; !slices.Equal(frames(evs), want) {
		t.Errorf("frames = %v, want %v", frames(evs), want)
	}
	if evs[2].Msg[0] != 0x90 || evs[2].Msg[1] != 62 || evs[2].Msg[2] != 90 {
		t.Errorf("last message = % x", evs[2].Msg)
	}
}

func TestLoadDefaultTempo(t *testing.T) {
	var tr smf.Track
	tr.Add(480, midi.ControlChange(0, 74, 10))
	evs, err := Load(encode(t, tr), 48000)
	if err != nil {
		t.Fatal(err)
	}
	// An eighth note at 120 BPM.
	if len(evs) != 1 || evs[0].Frame != 12000 {
		t.Errorf("events = %+v", evs)
	}
}

func TestLoadMergesTracks(t *testing.T) {
	var conductor, bass, drums smf.Track
	conductor.Add(0, smf.MetaTempo(120))
	bass.Add(0, midi.NoteOn(0, 36, 100))
	bass.Add(960, midi.NoteOff(0, 36))
	drums.Add(480, midi.NoteOn(9, 36, 127))
	drums.Add(480, midi.NoteOff(9, 36))
	evs, err := Load(encode(t, conductor, bass, drums), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{0, 250, 500, 500}; !slices.Equal(frames(evs), want) {
		t.Fatalf("frames = %v, want %v", frames(evs), want)
	}
	// Same tick keeps track order.
	if evs[2].Msg[0] != 0x80 || evs[3].Msg[0]&0x0F != 9 {
		t.Errorf("tie order: % x then % x", evs[2].Msg, evs[3].Msg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not a midi file")), 48000); err == nil {
		t.Error("garbage should fail")
	}
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 1))
	if _, err := Load(encode(t, tr), 0); err == nil {
		t.Error("zero sample rate should fail")
	}
	if _, err := ReadFile("testdata/missing.mid", 48000); err == nil {
		t.Error("missing file should fail")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	in := []Event{
		{0, midi.NoteOn(0, 45, 100)},
		{1200, midi.ControlChange(0, 74, 64)},
		{2400, midi.NoteOff(0, 45)},
		{2400, midi.NoteOn(9, 38, 80)},
	}
	var buf bytes.Buffer
	if err := Write(&buf, in, 48000); err != nil {
		t.Fatal(err)
	}
	out, err := Load(&buf, 48000)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(frames(out), frames(in)) {
		t.Errorf("frames = %v, want %v", frames(out), frames(in))
	}
	for i := range in {
		if !bytes.Equal(out[i].Msg, in[i].Msg) {
			t.Errorf("event %d = % x, want % x", i, out[i].Msg, in[i].Msg)
		}
	}
	if err := Write(&buf, []Event{{1000, midi.NoteOn(0, 1, 1)}, {500, midi.NoteOff(0, 1)}}, 48000); err == nil {
		t.Error("out of order events should fail")
	}
}

func TestDispatchIsSampleAccurate(t *testing.T) {
	eng := &countingEngine{}
	evs := []Event{
		{0, []byte{0x90, 60, 100}},
		{3, []byte{0xB0, 74, 1}},
		{3, []byte{0xB0, 74, 2}},
		{10, []byte{0x80, 60, 0}},
	}
	seq := New(evs, eng, 48000, Options{})
	seq.Process(make([]float32, 2*20))
	if want := []int{0, 3, 3, 10}; !slices.Equal(eng.got, want) {
		t.Errorf("dispatched at %v, want %v", eng.got, want)
	}
	if seq.Position() != 20 || seq.Length() != 10 {
		t.Errorf("position %d length %d", seq.Position(), seq.Length())
	}
}

func TestPlaybackEnds(t *testing.T) {
	eng := &countingEngine{}
	var got []EventKind
	seq := New([]Event{{10, []byte{0x90, 60, 1}}}, eng, 48000, Options{
		ReleaseTailFrames: 5,
		OnEvent:           func(k EventKind) { got = append(got, k) },
	})
	buf := make([]float32, 2*100)
	seq.Process(buf)
	if !seq.Finished() {
		t.Fatal("playback should have finished")
	}
	if !slices.Equal(got, []EventKind{EventPlaybackEnded}) {
		t.Errorf("events = %v", got)
	}
	if eng.frames != 16 {
		t.Errorf("rendered %d frames, want 16", eng.frames)
	}
	for i := 2 * 16; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d = %v after the end", i, buf[i])
		}
	}
}

func TestHangingNoteIsCut(t *testing.T) {
	for _, ch := range []byte{0, 1, 9, 15} {
		t.Run(fmt.Sprintf("channel %d", ch), func(t *testing.T) {
			eng := &countingEngine{latch: true}
			seq := New([]Event{{0, []byte{0x90 | ch, 60, 100}}}, eng, 48000, Options{
				ReleaseTailFrames: 5,
				HangFrames:        20,
			})
			seq.Process(make([]float32, 2*200))
			if !seq.Finished() {
				t.Fatal("playback should end after the hang limit")
			}
			if eng.resets != 1 {
				t.Errorf("resets = %d, want 1", eng.resets)
			}
			if len(eng.msgs) != 1 {
				t.Errorf("sequencer sent %d messages, want only the note", len(eng.msgs))
			}
		})
	}
}

func TestLoop(t *testing.T) {
	eng := &countingEngine{}
	loops := 0
	seq := New([]Event{{0, []byte{0x90, 60, 100}}, {4, []byte{0x80, 60, 0}}}, eng, 48000, Options{
		Loop:              true,
		ReleaseTailFrames: 2,
		OnEvent: func(k EventKind) {
			if k == EventLoopCompleted {
				loops++
			}
		},
	})
	seq.Process(make([]float32, 2*40))
	if seq.Finished() {
		t.Error("looping playback never finishes")
	}
	if loops < 2 {
		t.Errorf("loops = %d", loops)
	}
	ons := 0
	for _, m := range eng.msgs {
		if m[0] == 0x90 {
			ons++
		}
	}
	if ons != loops+1 {
		t.Errorf("note ons = %d, loops = %d", ons, loops)
	}
}

func TestEmptySequence(t *testing.T) {
	seq := New(nil, &countingEngine{}, 1000, Options{})
	seq.Process(make([]float32, 2*200))
	if !seq.Finished() || seq.Length() != 0 {
		t.Error("empty sequence should finish after the tail")
	}
	if EventPlaybackEnded.String() != "playback ended" {
		t.Error(EventPlaybackEnded.String())
	}
}
