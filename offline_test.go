package acidbox

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-audio/wav"
	"gitlab.com/gomidi/midi/v2"

	intseq "github.com/cbegin/acidbox-go/internal/sequencer"
)

func phrase(rate int) []intseq.Event {
	step := int64(rate / 8)
	var evs []intseq.Event
	notes := []uint8{33, 45, 33, 36, 33, 48, 43, 33}
	for i, n := range notes {
		at := int64(i) * step
		evs = append(evs, intseq.Event{Frame: at, Msg: midi.NoteOn(0, n, uint8(80+i*5))})
		if i%2 == 0 {
			evs = append(evs, intseq.Event{Frame: at, Msg: midi.NoteOn(9, 36, 120)})
		}
		evs = append(evs, intseq.Event{Frame: at + step/2, Msg: midi.NoteOff(0, n)})
	}
	return evs
}

func TestRenderDeterministic(t *testing.T) {
	a := Render(newTestEngine(t), phrase(testRate), 1.2)
	b := Render(newTestEngine(t), phrase(testRate), 1.2)
	if len(a) != 2*int(testRate*1.2) {
		t.Fatalf("rendered %d samples", len(a))
	}
	if !slices.Equal(a, b) {
		t.Error("offline render is not deterministic")
	}
	checkFinite(t, a)
	if l, r := energy(a); l < 100 || r < 100 {
		t.Errorf("render is nearly silent: %v/%v", l, r)
	}
}

func TestRenderNonPositiveLength(t *testing.T) {
	for _, secs := range []float64{0, -1, math.Inf(-1), math.NaN()} {
		if out := Render(newTestEngine(t), phrase(testRate), secs); len(out) != 0 {
			t.Errorf("Render(%v) = %d samples, want 0", secs, len(out))
		}
	}
}

// A note left hanging on a channel other than 1 is still cut once the hang
// limit passes.
func TestRenderCutsHangingNoteOnAnyChannel(t *testing.T) {
	e := newTestEngine(t, WithChannels(1, 9))
	events := []intseq.Event{{Frame: 0, Msg: midi.NoteOn(1, 45, 100)}}
	seq := intseq.New(events, e, testRate, intseq.Options{
		HangFrames:        100,
		ReleaseTailFrames: 100,
	})
	seq.Process(make([]float32, 2*testRate/100))
	if !e.Voice().Active() {
		t.Fatal("note on channel 2 did not sound")
	}
	buf := make([]float32, 2*512)
	for range 3 * testRate / 512 {
		seq.Process(buf)
	}
	if !seq.Finished() {
		t.Error("playback never ended")
	}
	if e.Voice().Active() || e.Sounding() {
		t.Error("hanging note is still sounding")
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	midPath := filepath.Join(dir, "phrase.mid")
	wavPath := filepath.Join(dir, "phrase.wav")
	f, err := os.Create(midPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := intseq.Write(f, phrase(testRate), testRate); err != nil {
		t.Fatal(err)
	}
	f.Close()

	n, err := RenderFile(midPath, wavPath, testRate)
	if err != nil {
		t.Fatal(err)
	}
	// Last event at ~0.94 s, one second of tail, plus the kick ringing out.
	if n < testRate || n > 4*testRate {
		t.Errorf("rendered %d frames", n)
	}
	wf, err := os.Open(wavPath)
	if err != nil {
		t.Fatal(err)
	}
	defer wf.Close()
	d := wav.NewDecoder(wf)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if d.SampleRate != testRate || len(buf.Data) != 2*n {
		t.Errorf("wav: %d Hz, %d samples", d.SampleRate, len(buf.Data))
	}
	if _, err := RenderFile(filepath.Join(dir, "missing.mid"), wavPath, testRate); err == nil {
		t.Error("missing input should fail")
	}
}
