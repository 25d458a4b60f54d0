package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	intseq "github.com/cbegin/acidbox-go/internal/sequencer"
)

// liveInput feeds one MIDI input port to a handler.
type liveInput struct {
	drv  *rtmididrv.Driver
	in   drivers.In
	stop func()
}

func listInputs() error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("open midi driver: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return err
	}
	for _, in := range ins {
		fmt.Println(in.String())
	}
	return nil
}

// openInput opens the first input whose name contains name
// (case-insensitive) and delivers its channel messages to handle.
func openInput(name string, handle func(msg midi.Message)) (*liveInput, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open midi driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("midi input %q not found", name)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open midi input %q: %w", found.String(), err)
	}
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		handle(msg)
	}, midi.HandleError(func(err error) {
		logger.Warn("midi listener error", "device", found.String(), "err", err)
	}))
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen to %q: %w", found.String(), err)
	}
	logger.Info("midi input connected", "device", found.String())
	return &liveInput{drv: drv, in: found, stop: stop}, nil
}

func (l *liveInput) Close() {
	l.stop()
	_ = l.in.Close()
	_ = l.drv.Close()
	logger.Info("midi input closed")
}

// recorder timestamps live messages in output frames.
type recorder struct {
	mu         sync.Mutex
	start      time.Time
	sampleRate int
	events     []intseq.Event
}

func newRecorder(sampleRate int) *recorder {
	return &recorder{start: time.Now(), sampleRate: sampleRate}
}

func (r *recorder) Record(msg []byte) {
	frame := int64(time.Since(r.start).Seconds() * float64(r.sampleRate))
	r.mu.Lock()
	r.events = append(r.events, intseq.Event{Frame: frame, Msg: append([]byte(nil), msg...)})
	r.mu.Unlock()
}

// Save writes the take as a Standard MIDI File.
func (r *recorder) Save(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := intseq.Write(f, r.events, r.sampleRate); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("recorded", "path", path, "events", len(r.events))
	return f.Close()
}
