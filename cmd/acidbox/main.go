package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/acidbox-go"
)

type options struct {
	sampleRate int
	file       string
	render     string
	midiIn     string
	record     string
	loop       bool
	loops      int
	volume     float64
	filter     string
	kit        string
	synthCh    int
	drumCh     int
	buffer     time.Duration
}

func main() {
	var (
		o        options
		logLevel string
	)
	flag.IntVar(&o.sampleRate, "sample-rate", 48000, "output sample rate")
	flag.StringVar(&o.file, "file", "", "Standard MIDI File to play")
	flag.StringVar(&o.render, "render", "", "render -file to this WAV path instead of playing it")
	flag.StringVar(&o.midiIn, "midi-in", "", `live MIDI input port (substring match); "list" prints the ports`)
	flag.StringVar(&o.record, "record", "", "save live input to this MIDI file on exit")
	flag.BoolVar(&o.loop, "loop", false, "loop -file; use with -loops to count then stop")
	flag.IntVar(&o.loops, "loops", 0, "when -loop, stop after N loops (0 = loop forever)")
	flag.Float64Var(&o.volume, "volume", 0.8, "master volume 0..2")
	flag.StringVar(&o.filter, "filter", "teebee", "voice filter: onepole|biquad|moog|teebee")
	flag.StringVar(&o.kit, "kit", "", "directory of .wav drum samples (default: built-in kit)")
	flag.IntVar(&o.synthCh, "synth-ch", 1, "synth MIDI channel (1-16)")
	flag.IntVar(&o.drumCh, "drum-ch", 10, "drum MIDI channel (1-16)")
	flag.DurationVar(&o.buffer, "buffer", 20*time.Millisecond, "audio device buffer")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Parse()

	if err := initLogger(logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(o); err != nil {
		logger.Error("acidbox failed", "err", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.midiIn == "list" {
		return listInputs()
	}
	engineOpts, err := engineOptions(o)
	if err != nil {
		return err
	}
	if o.render != "" {
		if o.file == "" {
			return errors.New("-render needs -file")
		}
		start := time.Now()
		n, err := acidbox.RenderFile(o.file, o.render, o.sampleRate, engineOpts...)
		if err != nil {
			return err
		}
		logger.Info("rendered", "path", o.render, "seconds", float64(n)/float64(o.sampleRate), "took", time.Since(start))
		return nil
	}
	if o.file == "" && o.midiIn == "" {
		return errors.New("nothing to play: pass -file, -midi-in or both")
	}

	pl, err := acidbox.NewPlayer(o.sampleRate,
		acidbox.WithLoopPlayback(o.loop),
		acidbox.WithBufferSize(o.buffer),
		acidbox.WithEngineOptions(engineOpts...),
	)
	if err != nil {
		return err
	}
	pl.SetMasterVolume(o.volume)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var rec *recorder
	if o.midiIn != "" {
		if o.record != "" {
			rec = newRecorder(o.sampleRate)
		}
		in, err := openInput(o.midiIn, func(msg midi.Message) {
			if !pl.HandleMIDI(msg) {
				logger.Debug("ignored", "msg", msg.String())
				return
			}
			if rec != nil {
				rec.Record(msg)
			}
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			in.Close()
			return nil
		})
		if err := pl.Start(); err != nil {
			return err
		}
	}

	if o.file != "" {
		events := pl.Watch()
		if err := pl.PlayFile(o.file); err != nil {
			return err
		}
		logger.Info("playing", "file", o.file, "loop", o.loop)
		g.Go(func() error {
			return watch(ctx, events, o, cancel)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return pl.Stop()
	})
	err = g.Wait()
	if rec != nil {
		if serr := rec.Save(o.record); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// watch logs playback events. When there is no live input the run ends with
// the file.
func watch(ctx context.Context, events <-chan acidbox.PlaybackEvent, o options, done func()) error {
	loops := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Kind {
			case acidbox.EventLoopCompleted:
				loops++
				logger.Info("loop completed", "count", loops)
				if o.loops > 0 && loops >= o.loops && o.midiIn == "" {
					done()
				}
			case acidbox.EventPlaybackEnded:
				logger.Info("playback completed")
				if o.midiIn == "" {
					done()
				}
			}
		}
	}
}

func engineOptions(o options) ([]acidbox.EngineOption, error) {
	synth, err := parseChannel("synth-ch", o.synthCh)
	if err != nil {
		return nil, err
	}
	drums, err := parseChannel("drum-ch", o.drumCh)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(o.filter)) {
	case "onepole", "biquad", "moog", "teebee":
	default:
		return nil, fmt.Errorf("invalid -filter %q (expected onepole|biquad|moog|teebee)", o.filter)
	}
	opts := []acidbox.EngineOption{
		acidbox.WithFilter(strings.ToLower(strings.TrimSpace(o.filter))),
		acidbox.WithChannels(synth, drums),
	}
	if o.kit != "" {
		opts = append(opts, acidbox.WithKitDir(o.kit))
	}
	return opts, nil
}

func parseChannel(name string, ch int) (uint8, error) {
	if ch < 1 || ch > 16 {
		return 0, fmt.Errorf("invalid -%s %d (expected 1-16)", name, ch)
	}
	return uint8(ch - 1), nil
}
