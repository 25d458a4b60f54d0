package audio

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/go-audio/wav"
)

type rampSource struct {
	n        int
	finishAt int
}

func (s *rampSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = float32(s.n) / 100
		s.n++
	}
}

func (s *rampSource) Finished() bool { return s.finishAt > 0 && s.n >= s.finishAt }

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	p := make([]byte, 3*bytesPerFrame+5)
	n, err := r.Read(p)
	if err != nil || n != 3*bytesPerFrame {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i := 0; i < 6; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != float32(i)/100 {
			t.Errorf("sample %d = %v", i, got)
		}
	}
	if r.Frames() != 3 {
		t.Errorf("Frames() = %d", r.Frames())
	}
	if n, err := r.Read(make([]byte, 7)); n != 0 || err != nil {
		t.Errorf("short read = %d, %v", n, err)
	}
}

func TestStreamReaderEOF(t *testing.T) {
	r := NewStreamReader(&rampSource{finishAt: 4})
	if _, err := r.Read(make([]byte, bytesPerFrame)); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if n, err := r.Read(make([]byte, bytesPerFrame)); err != io.EOF || n != bytesPerFrame {
		t.Fatalf("finishing read = %d, %v", n, err)
	}
	r = NewStreamReader(&rampSource{})
	r.Close()
	if _, err := r.Read(make([]byte, 64)); err != io.EOF {
		t.Errorf("read after Close = %v", err)
	}
}

func decode(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatal("invalid wav")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return d, buf.Data
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	in := []float32{0, 0.5, -0.5, 1, 2, -2, float32(math.NaN()), -1}
	if err := WriteWAV(f, in, 22050); err != nil {
		t.Fatal(err)
	}
	f.Close()
	d, data := decode(t, path)
	if d.SampleRate != 22050 || d.NumChans != 2 || d.BitDepth != 16 {
		t.Errorf("format %d Hz %d ch %d bit", d.SampleRate, d.NumChans, d.BitDepth)
	}
	want := []int{0, 16384, -16384, 32767, 32767, -32768, 0, -32767}
	if !slices.Equal(data, want) {
		t.Errorf("pcm = %v, want %v", data, want)
	}
}

func TestRenderWAVStopsWhenFinished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	src := &rampSource{finishAt: 2 * (renderBlock + 10)}
	n, err := RenderWAV(f, src, 48000, 10*renderBlock)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if n != 2*renderBlock {
		t.Errorf("wrote %d frames, want %d", n, 2*renderBlock)
	}
	_, data := decode(t, path)
	if len(data) != n*Channels {
		t.Errorf("decoded %d samples", len(data))
	}
	if _, err := RenderWAV(f, src, 0, 1); err == nil {
		t.Error("zero rate should fail")
	}
}

func TestMonitor(t *testing.T) {
	m := NewMonitor(100)
	if m.Len() != 128 {
		t.Fatalf("Len() = %d, want 128", m.Len())
	}
	// Before any write the snapshot is silence.
	dst := make([]float32, 4)
	if n := m.Snapshot(dst); n != 4 || !slices.Equal(dst, []float32{0, 0, 0, 0}) {
		t.Errorf("empty snapshot = %v (%d)", dst, n)
	}

	for i := range 200 {
		v := float32(i) / 1000
		m.Write(v, v)
	}
	if n := m.Snapshot(dst); n != 4 {
		t.Fatalf("Snapshot = %d", n)
	}
	want := []float32{0.196, 0.197, 0.198, 0.199}
	for i := range want {
		if math.Abs(float64(dst[i]-want[i])) > 1e-6 {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}

	big := make([]float32, 500)
	if n := m.Snapshot(big); n != 128 {
		t.Errorf("oversized snapshot copied %d", n)
	}
	if got := m.Peak(); math.Abs(float64(got)-0.199) > 1e-6 {
		t.Errorf("Peak() = %v", got)
	}
	if got := m.Peak(); got != 0 {
		t.Errorf("Peak() after read = %v", got)
	}
}

func TestMonitorPeakConcurrentWriters(t *testing.T) {
	const writers = 8
	for round := range 50 {
		m := NewMonitor(64)
		var wg sync.WaitGroup
		for w := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v := float32(w+1) / writers
				for range 100 {
					m.Write(-v, -v)
				}
			}()
		}
		wg.Wait()
		if got := m.Peak(); got != 1 {
			t.Fatalf("round %d: Peak() = %v, want the loudest writer", round, got)
		}
	}
}
