package sequencer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultBPM applies until the first tempo event.
const DefaultBPM = 120.0

// WriteResolution is the ticks per quarter note of files written by Write.
const WriteResolution = 960

var ErrTimeFormat = errors.New("sequencer: only metric time format is supported")

// Event is one channel message due at an absolute output frame.
type Event struct {
	Frame int64
	Msg   []byte
}

type tempoPoint struct {
	tick int64
	bpm  float64
}

// Load reads a Standard MIDI File and returns its channel messages from all
// tracks, converted to frames at sampleRate through the file's tempo map.
// Meta and system messages are dropped.
func Load(r io.Reader, sampleRate int) ([]Event, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sequencer: sampleRate must be positive")
	}
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return nil, ErrTimeFormat
	}

	type pending struct {
		tick  int64
		order int
		msg   []byte
	}
	var msgs []pending
	tempos := []tempoPoint{{0, DefaultBPM}}
	order := 0
	for _, tr := range s.Tracks {
		var tick int64
		for _, ev := range tr {
			tick += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				if bpm > 0 {
					tempos = append(tempos, tempoPoint{tick, bpm})
				}
				continue
			}
			m := ev.Message
			if len(m) == 0 || m[0] < 0x80 || m[0] >= 0xF0 {
				continue
			}
			msgs = append(msgs, pending{tick, order, append([]byte(nil), m...)})
			order++
		}
	}
	sort.SliceStable(tempos, func(i, j int) bool { return tempos[i].tick < tempos[j].tick })
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].tick < msgs[j].tick })

	tm := newTempoMap(tempos, float64(mt))
	out := make([]Event, len(msgs))
	for i, m := range msgs {
		out[i] = Event{Frame: int64(math.Round(tm.seconds(m.tick) * float64(sampleRate))), Msg: m.msg}
	}
	return out, nil
}

// ReadFile opens and loads a Standard MIDI File.
func ReadFile(path string, sampleRate int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := Load(f, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// tempoMap converts ticks to seconds with piecewise-constant tempo.
type tempoMap struct {
	points []tempoPoint
	start  []float64 // seconds at each point
	tpq    float64
}

func newTempoMap(points []tempoPoint, tpq float64) *tempoMap {
	// Later entries at the same tick win.
	var dedup []tempoPoint
	for _, p := range points {
		if n := len(dedup); n > 0 && dedup[n-1].tick == p.tick {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	tm := &tempoMap{points: dedup, start: make([]float64, len(dedup)), tpq: tpq}
	for i := 1; i < len(dedup); i++ {
		prev := dedup[i-1]
		tm.start[i] = tm.start[i-1] + float64(dedup[i].tick-prev.tick)*60/(prev.bpm*tpq)
	}
	return tm
}

func (tm *tempoMap) seconds(tick int64) float64 {
	i := sort.Search(len(tm.points), func(i int) bool { return tm.points[i].tick > tick }) - 1
	if i < 0 {
		i = 0
	}
	p := tm.points[i]
	return tm.start[i] + float64(tick-p.tick)*60/(p.bpm*tm.tpq)
}

// Write stores events as a single-track file at DefaultBPM. Events must be
// ordered by frame.
func Write(w io.Writer, events []Event, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("sequencer: sampleRate must be positive")
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(WriteResolution)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(DefaultBPM))
	ticksPerFrame := DefaultBPM / 60 * WriteResolution / float64(sampleRate)
	var last int64
	for _, ev := range events {
		tick := int64(math.Round(float64(ev.Frame) * ticksPerFrame))
		if tick < last {
			return fmt.Errorf("sequencer: event at frame %d out of order", ev.Frame)
		}
		tr.Add(uint32(tick-last), ev.Msg)
		last = tick
	}
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}
