// Package acidbox is a MIDI-controlled acid bass voice and drum sampler with a
// send-effects mixer, playable live through the audio device or rendered
// offline.
package acidbox

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cbegin/acidbox-go/internal/audio"
	"github.com/cbegin/acidbox-go/internal/control"
	"github.com/cbegin/acidbox-go/internal/display"
	"github.com/cbegin/acidbox-go/internal/effects"
	"github.com/cbegin/acidbox-go/internal/filter"
	"github.com/cbegin/acidbox-go/internal/sampler"
	"github.com/cbegin/acidbox-go/internal/voice"
)

// MaxFoldDrive is the wavefolder drive at CC 127.
const MaxFoldDrive = 4.0

// MonitorSize is the number of output samples kept for meters.
const MonitorSize = 2048

type EngineOption func(*engineConfig)

type engineConfig struct {
	voice   voice.Params
	control control.Config
	kitDir  string
	master  float64
	delayMs float64
	lcd     *display.LCD
}

func defaultEngineConfig(sampleRate int) engineConfig {
	vp := voice.DefaultParams()
	vp.SampleRate = float64(sampleRate)
	return engineConfig{
		voice:   vp,
		control: control.DefaultConfig(),
		master:  0.8,
		delayMs: 375,
	}
}

// WithFilter selects the voice filter by name: onepole, biquad, moog or
// teebee.
func WithFilter(name string) EngineOption {
	return func(cfg *engineConfig) {
		if k, ok := filter.ParseKind(name); ok {
			cfg.voice.Filter = k
		}
	}
}

// WithChannels assigns the synth and drum MIDI channels (0-based).
func WithChannels(synth, drums uint8) EngineOption {
	return func(cfg *engineConfig) {
		cfg.control.SynthChannel = synth & 0x0F
		cfg.control.DrumChannel = drums & 0x0F
	}
}

// WithKitDir replaces the built-in kit with the .wav files of dir, in name
// order, one per slot.
func WithKitDir(dir string) EngineOption {
	return func(cfg *engineConfig) { cfg.kitDir = dir }
}

// WithDelayTime sets the delay send time in milliseconds.
func WithDelayTime(ms float64) EngineOption {
	return func(cfg *engineConfig) { cfg.delayMs = ms }
}

// WithDisplay attaches the instrument's display handle. The engine does not
// draw on it.
func WithDisplay(lcd *display.LCD) EngineOption {
	return func(cfg *engineConfig) { cfg.lcd = lcd }
}

// Engine is the composition root: it owns the voice, the sampler and the
// mixer, and renders one stereo frame per call. RenderFrame and Process are
// the audio tick and never lock or allocate; every setter is a single atomic
// store and may be called from any goroutine.
type Engine struct {
	sampleRate int

	voice   *voice.Voice
	drums   *sampler.Sampler
	fold    *effects.Wavefolder
	drive   *effects.Overdrive
	delay   *effects.Delay
	reverb  *effects.Reverb
	eq      *effects.EQ5Band
	limiter *effects.Limiter
	bus     *effects.Chain
	surface *control.Surface
	monitor *audio.Monitor
	lcd     *display.LCD

	synthPan    atomic.Uint32 // raw 0-127
	synthReverb atomic.Uint32
	synthDelay  atomic.Uint32
	foldMidi    atomic.Uint32
	driveMidi   atomic.Uint32
	master      atomic.Uint64 // float64 bits
}

func NewEngine(sampleRate int, opts ...EngineOption) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultEngineConfig(sampleRate)
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		sampleRate: sampleRate,
		fold:       effects.NewWavefolder(),
		drive:      effects.NewOverdrive(),
		delay:      effects.NewDelay(sampleRate, cfg.delayMs, 2000, 0.45, 0.35, 1),
		reverb:     effects.NewReverb(sampleRate, 0.7, 0.8, 1),
		eq:         effects.NewEQ5Band(sampleRate),
		limiter:    effects.NewLimiter(sampleRate, -0.3, 80),
		monitor:    audio.NewMonitor(MonitorSize),
		lcd:        cfg.lcd,
	}
	e.bus = effects.NewChain(e.eq, e.limiter)
	e.voice = voice.New(cfg.voice, e.fold, e.drive)
	if cfg.kitDir != "" {
		e.drums = sampler.NewEmpty(sampleRate)
		n, err := e.drums.LoadDir(cfg.kitDir)
		if err != nil {
			return nil, fmt.Errorf("load kit: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("load kit: no .wav files in %s", cfg.kitDir)
		}
	} else {
		e.drums = sampler.New(sampleRate)
	}
	e.surface = control.New(cfg.control, e.voice, e.drums, e)
	e.synthPan.Store(64)
	e.SetMasterVolume(cfg.master)
	return e, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

func (e *Engine) Voice() *voice.Voice             { return e.voice }
func (e *Engine) Drums() *sampler.Sampler         { return e.drums }
func (e *Engine) Surface() *control.Surface       { return e.surface }
func (e *Engine) EQ() *effects.EQ5Band            { return e.eq }
func (e *Engine) Limiter() *effects.Limiter       { return e.limiter }
func (e *Engine) Monitor() *audio.Monitor         { return e.monitor }
func (e *Engine) Wavefolder() *effects.Wavefolder { return e.fold }
func (e *Engine) Overdrive() *effects.Overdrive   { return e.drive }

// Display returns the handle given with WithDisplay, or nil.
func (e *Engine) Display() *display.LCD { return e.lcd }

// HandleMIDI applies one channel message and reports whether it was used.
func (e *Engine) HandleMIDI(msg []byte) bool { return e.surface.Handle(msg) }

// SetMasterVolume sets the output gain, 0..2. 1 is unity.
func (e *Engine) SetMasterVolume(v float64) {
	if v != v {
		return
	}
	e.master.Store(math.Float64bits(max(0, min(v, 2))))
}

func (e *Engine) MasterVolume() float64 { return math.Float64frombits(e.master.Load()) }

func (e *Engine) SetSynthPanMidi(v uint8)    { e.synthPan.Store(uint32(min(v, 127))) }
func (e *Engine) SetSynthReverbSend(v uint8) { e.synthReverb.Store(uint32(min(v, 127))) }
func (e *Engine) SetSynthDelaySend(v uint8)  { e.synthDelay.Store(uint32(min(v, 127))) }

// SetDistortionMidi maps CC 94 onto the wavefolder drive, 0..MaxFoldDrive.
func (e *Engine) SetDistortionMidi(v uint8) {
	v = min(v, 127)
	e.foldMidi.Store(uint32(v))
	e.fold.SetDrive(float32(v) / 127 * MaxFoldDrive)
}

// SetOverdriveMidi maps CC 95 onto the overdrive drive, 0..1.
func (e *Engine) SetOverdriveMidi(v uint8) {
	v = min(v, 127)
	e.driveMidi.Store(uint32(v))
	e.drive.SetDrive(float32(v) / 127)
}

func (e *Engine) SynthPanMidi() uint8    { return uint8(e.synthPan.Load()) }
func (e *Engine) SynthReverbSend() uint8 { return uint8(e.synthReverb.Load()) }
func (e *Engine) SynthDelaySend() uint8  { return uint8(e.synthDelay.Load()) }
func (e *Engine) DistortionMidi() uint8  { return uint8(e.foldMidi.Load()) }
func (e *Engine) OverdriveMidi() uint8   { return uint8(e.driveMidi.Load()) }

// Sounding reports whether the voice or any drum slot is playing.
func (e *Engine) Sounding() bool {
	if e.voice.Active() {
		return true
	}
	for n := range uint8(sampler.SlotCount) {
		if e.drums.IsSampleActive(n) {
			return true
		}
	}
	return false
}

// RenderFrame ticks the voice and the sampler once and mixes one frame:
// dry signals, then the delay and reverb returns, then master volume and the
// master bus (EQ, limiter).
func (e *Engine) RenderFrame() (float32, float32) {
	s := e.voice.Process()
	dl, dr := e.drums.Process()

	// Balance pan: 64 keeps both sides at full level.
	p := float32(e.synthPan.Load())
	l := s*min(1, (127-p)/63) + dl
	r := s*min(1, p/64) + dr

	mono := (dl + dr) * 0.5
	delayIn := s*float32(e.synthDelay.Load())/127 + mono*e.drums.DelaySend()
	reverbIn := s*float32(e.synthReverb.Load())/127 + mono*e.drums.ReverbSend()
	el, er := e.delay.Process(delayIn, delayIn)
	rl, rr := e.reverb.Process(reverbIn, reverbIn)

	// The EQ is linear, so master gain can go ahead of it.
	g := float32(e.MasterVolume())
	l, r = e.bus.Process((l+el+rl)*g, (r+er+rr)*g)
	e.monitor.Write(l, r)
	return l, r
}

// Process fills dst with interleaved stereo frames.
func (e *Engine) Process(dst []float32) {
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = e.RenderFrame()
	}
}

// Reset silences the voice and every drum slot. Effect tails ring out.
func (e *Engine) Reset() {
	e.voice.StopSound()
	e.drums.AllNotesOff()
}
