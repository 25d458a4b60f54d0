package acidbox

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	intseq "github.com/cbegin/acidbox-go/internal/sequencer"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 0.8 {
		t.Fatalf("default master volume = %v, want 0.8", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerEQBand(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatal(err)
	}
	pl.SetEQBand(2, 0.5)
	if got := pl.EQBand(2); got != 0.5 {
		t.Errorf("EQBand(2) = %v", got)
	}
	if got := pl.EQBand(9); got != 1 {
		t.Errorf("out of range band = %v", got)
	}
}

func TestPlayerRejectsBadRate(t *testing.T) {
	if _, err := NewPlayer(-1); err == nil {
		t.Error("negative sample rate should fail")
	}
	if _, err := NewPlayer(48000, WithEngineOptions(WithKitDir(t.TempDir()))); err == nil {
		t.Error("engine options should reach the engine")
	}
}

func TestPlayerProcessSources(t *testing.T) {
	var tapped int
	pl, err := NewPlayer(testRate, WithSampleTap(func(buf []float32) { tapped += len(buf) }))
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 512)
	pl.HandleMIDI(midi.NoteOn(0, 50, 100))
	pl.Process(buf)
	if l, _ := energy(buf); l == 0 {
		t.Error("live note should sound without a file")
	}

	// A scheduled file takes over until it ends.
	events := []intseq.Event{
		{Frame: 0, Msg: midi.NoteOff(0, 50)},
		{Frame: 100, Msg: midi.NoteOn(9, 38, 127)},
	}
	seq := intseq.New(events, pl.Engine(), testRate, intseq.Options{ReleaseTailFrames: 10})
	pl.seq.Store(seq)
	for range 200 {
		pl.Process(buf)
	}
	if !seq.Finished() {
		t.Error("file should have finished")
	}
	if seq.Position() == 0 {
		t.Error("sequencer never ran")
	}
	if tapped != 201*len(buf) {
		t.Errorf("tap saw %d samples", tapped)
	}
}

func TestPlayerStopWithoutStart(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatal(err)
	}
	if err := pl.Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
	pl.Wait()
	if pl.PlaybackPosition() != 0 {
		t.Error("position without playback")
	}
}
