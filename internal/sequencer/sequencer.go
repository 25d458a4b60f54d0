// Package sequencer plays time-stamped MIDI events into an engine with
// sample accuracy.
package sequencer

import (
	"sync/atomic"
)

// Engine is what the sequencer drives: it accepts channel messages and
// renders one stereo frame at a time.
type Engine interface {
	HandleMIDI(msg []byte) bool
	RenderFrame() (float32, float32)
	// Sounding reports whether any voice or slot is still producing sound.
	Sounding() bool
	// Reset silences every voice and slot on every channel.
	Reset()
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

func (k EventKind) String() string {
	switch k {
	case EventLoopCompleted:
		return "loop completed"
	case EventPlaybackEnded:
		return "playback ended"
	}
	return "unknown"
}

type Options struct {
	Loop    bool
	OnEvent func(EventKind)
	// ReleaseTailFrames is rendered after the engine falls silent
	// (0 = 0.1 s).
	ReleaseTailFrames int
	// HangFrames bounds how long a note left sounding after the last event
	// may ring before all sound is cut (0 = 2 s).
	HangFrames int
}

type Sequencer struct {
	events  []Event
	engine  Engine
	onEvent func(EventKind)
	loop    bool

	tailFrames int
	hangFrames int

	frame int64
	next  int
	tail  int
	hang  int

	position atomic.Int64
	finished atomic.Bool
}

// New schedules events, which must be ordered by frame.
func New(events []Event, engine Engine, sampleRate int, opts Options) *Sequencer {
	s := &Sequencer{
		events:     events,
		engine:     engine,
		onEvent:    opts.OnEvent,
		loop:       opts.Loop,
		tailFrames: opts.ReleaseTailFrames,
		hangFrames: opts.HangFrames,
	}
	if s.tailFrames <= 0 {
		s.tailFrames = sampleRate / 10
	}
	if s.hangFrames <= 0 {
		s.hangFrames = sampleRate * 2
	}
	s.tail = s.tailFrames
	return s
}

// Process renders interleaved stereo frames, dispatching every event due at
// a frame before rendering it. After playback ends without looping it
// renders silence.
func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		if s.finished.Load() {
			dst[f*2], dst[f*2+1] = 0, 0
			continue
		}
		for s.next < len(s.events) && s.events[s.next].Frame <= s.frame {
			s.engine.HandleMIDI(s.events[s.next].Msg)
			s.next++
		}
		l, r := s.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		s.frame++
		if s.next >= len(s.events) {
			s.drain()
		}
	}
	s.position.Add(int64(frames))
}

// drain runs once per frame after the last event: it waits for the engine
// to fall silent, then for the release tail.
func (s *Sequencer) drain() {
	if s.engine.Sounding() {
		s.hang++
		if s.hang < s.hangFrames {
			return
		}
		s.engine.Reset()
	}
	if s.tail > 0 {
		s.tail--
		return
	}
	if s.loop {
		s.frame, s.next, s.tail, s.hang = 0, 0, s.tailFrames, 0
		s.emit(EventLoopCompleted)
		return
	}
	s.finished.Store(true)
	s.emit(EventPlaybackEnded)
}

func (s *Sequencer) emit(k EventKind) {
	if s.onEvent != nil {
		s.onEvent(k)
	}
}

// Finished reports whether non-looping playback has ended.
func (s *Sequencer) Finished() bool { return s.finished.Load() }

// Position is the number of frames rendered so far.
func (s *Sequencer) Position() int64 { return s.position.Load() }

// Length is the frame of the last event.
func (s *Sequencer) Length() int64 {
	if len(s.events) == 0 {
		return 0
	}
	return s.events[len(s.events)-1].Frame
}
