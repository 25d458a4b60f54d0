package acidbox

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/acidbox-go/internal/audio"
	intseq "github.com/cbegin/acidbox-go/internal/sequencer"
)

// PlaybackEvent carries playback events from Watch().
type PlaybackEvent struct {
	Kind int // EventLoopCompleted or EventPlaybackEnded
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loopPlayback bool
	sampleTap    func([]float32)
	bufferSize   time.Duration
	engine       []EngineOption
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{bufferSize: 20 * time.Millisecond}
}

// WithLoopPlayback makes PlayFile restart the file when it ends.
func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithBufferSize sets the device buffer; smaller is more responsive to live
// input.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// WithEngineOptions configures the engine the player creates.
func WithEngineOptions(opts ...EngineOption) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.engine = append(cfg.engine, opts...)
	}
}

// Player runs an Engine on the audio device. Live MIDI goes to HandleMIDI at
// any time; PlayFile additionally schedules a MIDI file against the same
// engine.
type Player struct {
	mu         sync.Mutex
	engine     *Engine
	sampleRate int
	audio      *intaudio.Player
	cfg        playerConfig

	seq     atomic.Pointer[intseq.Sequencer]
	done    chan struct{}
	eventCh chan PlaybackEvent
	evMu    sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := NewEngine(sampleRate, cfg.engine...)
	if err != nil {
		return nil, err
	}
	return &Player{engine: engine, sampleRate: sampleRate, cfg: cfg}, nil
}

// Engine exposes the engine for displays and direct parameter access.
func (p *Player) Engine() *Engine { return p.engine }

// Process is the audio source: the scheduled file if one is playing, the
// bare engine otherwise.
func (p *Player) Process(dst []float32) {
	if s := p.seq.Load(); s != nil && !s.Finished() {
		s.Process(dst)
	} else {
		p.engine.Process(dst)
	}
	if p.cfg.sampleTap != nil {
		p.cfg.sampleTap(dst)
	}
}

// Start opens the audio device and begins rendering. It is a no-op when
// already running.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		return nil
	}
	backend, err := intaudio.NewPlayer(p.sampleRate, p, p.cfg.bufferSize)
	if err != nil {
		return err
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

// HandleMIDI applies one live channel message.
func (p *Player) HandleMIDI(msg []byte) bool { return p.engine.HandleMIDI(msg) }

// PlayFile schedules a Standard MIDI File from the current position and
// starts the device if needed. A file already playing is replaced.
func (p *Player) PlayFile(path string) error {
	events, err := intseq.ReadFile(path, p.sampleRate)
	if err != nil {
		return err
	}
	return p.PlayEvents(events)
}

// PlayEvents schedules pre-timed events like PlayFile.
func (p *Player) PlayEvents(events []intseq.Event) error {
	p.mu.Lock()
	if p.done != nil {
		close(p.done)
	}
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	seq := intseq.New(events, p.engine, p.sampleRate, intseq.Options{
		Loop: p.cfg.loopPlayback,
		OnEvent: func(k intseq.EventKind) {
			switch k {
			case intseq.EventLoopCompleted:
				p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
			case intseq.EventPlaybackEnded:
				p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
				p.signalDone(done)
			}
		},
	})
	if old := p.seq.Swap(seq); old != nil {
		p.engine.Reset()
	}
	return p.Start()
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.evMu.Lock()
	ch := p.eventCh
	p.evMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// signalDone runs on the audio goroutine and must not block.
func (p *Player) signalDone(done chan struct{}) {
	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.done == done {
			close(done)
			p.done = nil
		}
	}()
}

// Stop closes the audio device. The engine keeps its parameters.
func (p *Player) Stop() error {
	p.mu.Lock()
	a := p.audio
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if old := p.seq.Swap(nil); old != nil && !old.Finished() {
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	}
	p.engine.Reset()
	if done != nil {
		close(done)
	}
	if a == nil {
		return nil
	}
	return a.Stop()
}

// Wait blocks until the current file ends. When loop playback is enabled,
// Wait blocks until Stop or the next PlayFile. It returns immediately if no
// file is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8); events are dropped when it is full. Only the most recent
// Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.evMu.Lock()
	p.eventCh = ch
	p.evMu.Unlock()
	return ch
}

// SetMasterVolume sets the runtime output gain. 1.0 is unity.
func (p *Player) SetMasterVolume(volume float64) { p.engine.SetMasterVolume(volume) }

func (p *Player) MasterVolume() float64 { return p.engine.MasterVolume() }

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band edges: 0=<120Hz, 1=120-500Hz, 2=500Hz-2kHz, 3=2-6kHz, 4=>6kHz.
// This takes effect immediately on the audio thread (lock-free).
func (p *Player) SetEQBand(band int, gain float32) { p.engine.EQ().SetGain(band, gain) }

// EQBand returns the current gain for a master EQ band (0-4).
func (p *Player) EQBand(band int) float32 { return p.engine.EQ().Gain(band) }

// PlaybackPosition returns the frames heard so far of the current file, or 0.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	s := p.seq.Load()
	if a == nil || s == nil {
		return 0
	}
	// The device lags the renderer by its buffer.
	lag := a.Rendered() - int64(a.Position().Seconds()*float64(p.sampleRate))
	return max(0, s.Position()-max(0, lag))
}
